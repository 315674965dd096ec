package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/careflow/adrenav/internal/ai"
	"github.com/careflow/adrenav/internal/ingest"
	"github.com/careflow/adrenav/internal/model"
	appErr "github.com/careflow/adrenav/internal/pkg/errors"
	"github.com/careflow/adrenav/internal/repo"
)

// IngestService loads source documents into the knowledge store:
// extract pages, chunk, dedupe, insert, and embed best effort.
type IngestService struct {
	chunks     *repo.ChunkRepo
	embeddings *repo.EmbeddingRepo
	manager    *ai.Manager
}

func NewIngestService(chunks *repo.ChunkRepo, embeddings *repo.EmbeddingRepo, manager *ai.Manager) *IngestService {
	return &IngestService{chunks: chunks, embeddings: embeddings, manager: manager}
}

type IngestOptions struct {
	Version int
	DryRun  bool
	Chunk   ingest.ChunkOptions
}

type IngestResult struct {
	Created int
	Skipped int
}

// IngestFile processes one document. A chunk whose hash already exists
// in the store is counted as skipped; a dry run counts every new chunk
// as skipped without writing. Embedding failures never fail the
// ingest, the backfill job picks those chunks up later.
func (s *IngestService) IngestFile(ctx context.Context, path string, opts IngestOptions) (*IngestResult, error) {
	if s.chunks == nil {
		return nil, appErr.ErrNoStore
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat input file: %w", err)
	}
	sourceDoc := filepath.Base(path)
	logger := logutil.GetLogger(ctx).With(zap.String("source_doc", sourceDoc))

	pages, err := ingest.ExtractPages(path)
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}
	deduped := ingest.DedupeChunks(ingest.ChunkPages(pages, opts.Chunk))
	if len(deduped) == 0 {
		logger.Warn("no chunks created, check text extraction or chunk settings")
		return &IngestResult{}, nil
	}

	version := opts.Version
	if version <= 0 {
		version = 1
	}

	result := &IngestResult{}
	for _, chunk := range deduped {
		existing, err := s.chunks.FindByHash(ctx, chunk.Hash)
		if err != nil && !appErr.IsNotFound(err) {
			return result, err
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		chunkID := newChunkID()
		citationKey := BuildCitationKey(sourceDoc, chunkID, chunk.PageStart, chunk.PageEnd)

		if opts.DryRun {
			logger.Info("dry run", zap.String("citation_key", citationKey))
			result.Skipped++
			continue
		}

		now := time.Now().UnixMilli()
		record := &model.KnowledgeChunk{
			ID:              chunkID,
			SourceDoc:       sourceDoc,
			SourcePageStart: chunk.PageStart,
			SourcePageEnd:   chunk.PageEnd,
			Text:            chunk.Text,
			Hash:            chunk.Hash,
			Version:         version,
			CitationKey:     citationKey,
			Ctime:           now,
			Mtime:           now,
		}
		if err := s.chunks.Create(ctx, record); err != nil {
			if appErr.IsConflict(err) {
				result.Skipped++
				continue
			}
			return result, err
		}
		result.Created++

		s.embedChunk(ctx, record)
	}
	return result, nil
}

func (s *IngestService) embedChunk(ctx context.Context, chunk *model.KnowledgeChunk) {
	if s.embeddings == nil || !s.manager.EmbeddingEnabled() {
		return
	}
	vector, err := s.manager.Embed(ctx, chunk.Text)
	if err != nil || len(vector) == 0 {
		logutil.GetLogger(ctx).Warn("embedding failed", zap.String("chunk_id", chunk.ID), zap.Error(err))
		return
	}
	if err := s.embeddings.Save(ctx, &model.KnowledgeEmbedding{
		ChunkID:   chunk.ID,
		ModelName: s.manager.EmbeddingModelName(),
		Vector:    vector,
		Ctime:     time.Now().UnixMilli(),
	}); err != nil {
		logutil.GetLogger(ctx).Warn("save embedding failed", zap.String("chunk_id", chunk.ID), zap.Error(err))
	}
}
