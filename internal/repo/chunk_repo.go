package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/careflow/adrenav/internal/model"
	"github.com/careflow/adrenav/internal/pkg/dbutil"
	appErr "github.com/careflow/adrenav/internal/pkg/errors"
)

var chunkColumns = []string{
	"id", "source_doc", "source_page_start", "source_page_end",
	"text", "hash", "version", "citation_key", "ctime", "mtime",
}

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) Create(ctx context.Context, chunk *model.KnowledgeChunk) error {
	data := map[string]interface{}{
		"id":                chunk.ID,
		"source_doc":        chunk.SourceDoc,
		"source_page_start": chunk.SourcePageStart,
		"source_page_end":   chunk.SourcePageEnd,
		"text":              chunk.Text,
		"hash":              chunk.Hash,
		"version":           chunk.Version,
		"citation_key":      chunk.CitationKey,
		"ctime":             chunk.Ctime,
		"mtime":             chunk.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("knowledge_chunks", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ChunkRepo) List(ctx context.Context) ([]model.KnowledgeChunk, error) {
	where := map[string]interface{}{"_orderby": "ctime desc"}
	sqlStr, args, err := builder.BuildSelect("knowledge_chunks", where, chunkColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.KnowledgeChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// FindByHash is the idempotency check for ingestion: re-ingesting text
// whose hash already exists is a skip, never an update.
func (r *ChunkRepo) FindByHash(ctx context.Context, hash string) (*model.KnowledgeChunk, error) {
	where := map[string]interface{}{"hash": hash}
	sqlStr, args, err := builder.BuildSelect("knowledge_chunks", where, chunkColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	chunk, err := scanChunk(rows)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// ListWithoutEmbedding returns chunks lacking a stored vector, oldest
// first, for the backfill job.
func (r *ChunkRepo) ListWithoutEmbedding(ctx context.Context, limit int) ([]model.KnowledgeChunk, error) {
	const query = `
		SELECT c.id, c.source_doc, c.source_page_start, c.source_page_end,
		       c.text, c.hash, c.version, c.citation_key, c.ctime, c.mtime
		FROM knowledge_chunks c
		LEFT JOIN knowledge_embeddings e ON c.id = e.chunk_id
		WHERE e.chunk_id IS NULL
		ORDER BY c.ctime ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.KnowledgeChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func scanChunk(rows *sql.Rows) (model.KnowledgeChunk, error) {
	var chunk model.KnowledgeChunk
	var pageStart, pageEnd sql.NullInt64
	if err := rows.Scan(
		&chunk.ID, &chunk.SourceDoc, &pageStart, &pageEnd,
		&chunk.Text, &chunk.Hash, &chunk.Version, &chunk.CitationKey,
		&chunk.Ctime, &chunk.Mtime,
	); err != nil {
		return model.KnowledgeChunk{}, err
	}
	if pageStart.Valid {
		v := int(pageStart.Int64)
		chunk.SourcePageStart = &v
	}
	if pageEnd.Valid {
		v := int(pageEnd.Int64)
		chunk.SourcePageEnd = &v
	}
	return chunk, nil
}
