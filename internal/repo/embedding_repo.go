package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/careflow/adrenav/internal/model"
)

type EmbeddingRepo struct {
	db *sql.DB
}

func NewEmbeddingRepo(db *sql.DB) *EmbeddingRepo {
	return &EmbeddingRepo{db: db}
}

func (r *EmbeddingRepo) Save(ctx context.Context, emb *model.KnowledgeEmbedding) error {
	const query = `
		INSERT INTO knowledge_embeddings (chunk_id, model_name, embedding, ctime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chunk_id) DO UPDATE SET
			model_name = EXCLUDED.model_name,
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query,
		emb.ChunkID,
		emb.ModelName,
		pgvector.NewVector(emb.Vector),
		emb.Ctime,
	)
	return err
}

func (r *EmbeddingRepo) List(ctx context.Context) ([]model.KnowledgeEmbedding, error) {
	const query = `SELECT chunk_id, model_name, embedding, ctime FROM knowledge_embeddings`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.KnowledgeEmbedding
	for rows.Next() {
		var item model.KnowledgeEmbedding
		var vector pgvector.Vector
		if err := rows.Scan(&item.ChunkID, &item.ModelName, &vector, &item.Ctime); err != nil {
			return nil, err
		}
		item.Vector = vector.Slice()
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *EmbeddingRepo) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM knowledge_embeddings`
	row := r.db.QueryRowContext(ctx, query)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
