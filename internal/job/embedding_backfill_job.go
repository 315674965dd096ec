package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/careflow/adrenav/internal/ai"
	"github.com/careflow/adrenav/internal/model"
	"github.com/careflow/adrenav/internal/repo"
)

// EmbeddingBackfillJob embeds knowledge chunks that were ingested
// without an embedding, typically because the embedder was down or
// unconfigured at ingest time.
type EmbeddingBackfillJob struct {
	chunks     *repo.ChunkRepo
	embeddings *repo.EmbeddingRepo
	manager    *ai.Manager
	batchSize  int
}

func NewEmbeddingBackfillJob(chunks *repo.ChunkRepo, embeddings *repo.EmbeddingRepo, manager *ai.Manager, batchSize int) *EmbeddingBackfillJob {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &EmbeddingBackfillJob{chunks: chunks, embeddings: embeddings, manager: manager, batchSize: batchSize}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.chunks == nil || j.embeddings == nil || !j.manager.EmbeddingEnabled() {
		return nil
	}
	pending, err := j.chunks.ListWithoutEmbedding(ctx, j.batchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	logger := logutil.GetLogger(ctx)
	done := 0
	for _, chunk := range pending {
		vector, err := j.manager.Embed(ctx, chunk.Text)
		if err != nil || len(vector) == 0 {
			logger.Warn("backfill embedding failed", zap.String("chunk_id", chunk.ID), zap.Error(err))
			continue
		}
		if err := j.embeddings.Save(ctx, &model.KnowledgeEmbedding{
			ChunkID:   chunk.ID,
			ModelName: j.manager.EmbeddingModelName(),
			Vector:    vector,
			Ctime:     time.Now().UnixMilli(),
		}); err != nil {
			logger.Warn("save backfill embedding failed", zap.String("chunk_id", chunk.ID), zap.Error(err))
			continue
		}
		done++
	}
	logger.Info("embedding backfill cycle", zap.Int("pending", len(pending)), zap.Int("embedded", done))
	return nil
}
