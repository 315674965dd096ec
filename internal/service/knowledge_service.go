package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/careflow/adrenav/internal/ai"
	"github.com/careflow/adrenav/internal/model"
	"github.com/careflow/adrenav/internal/repo"
)

const (
	snippetMaxChars = 320
	corpusCacheTTL  = time.Minute
)

// RetrievalChunk is the query-time projection of a knowledge chunk
// handed to the dialogue engine. Never persisted.
type RetrievalChunk struct {
	ChunkID     string  `json:"chunk_id"`
	SourceDoc   string  `json:"source_doc"`
	PageRange   *string `json:"page_range"`
	TextSnippet string  `json:"text_snippet"`
	CitationKey string  `json:"citation_key"`
}

// sampleChunks keep the assistant grounded when no store is
// configured.
var sampleChunks = []model.KnowledgeChunk{
	{
		ID:              "sample-chunk-001",
		SourceDoc:       "Sample knowledge",
		SourcePageStart: intPtr(1),
		SourcePageEnd:   intPtr(1),
		Text:            "Incidental adrenal nodules are often discovered on imaging done for other reasons. Clinics typically confirm imaging details, review prior scans, and check whether the nodule has features that require follow-up. Most workups include a review of symptoms, blood pressure history, and targeted lab testing for hormone overproduction.",
		Hash:            "sample-hash-1",
		Version:         1,
		CitationKey:     "DOC:Sample knowledge|CHUNK:sample-chunk-001|P:1-1",
	},
	{
		ID:              "sample-chunk-002",
		SourceDoc:       "Sample knowledge",
		SourcePageStart: intPtr(2),
		SourcePageEnd:   intPtr(2),
		Text:            "Common hormonal testing includes a dexamethasone suppression test (DST) for cortisol excess, plasma or urine metanephrines for catecholamine excess, and an aldosterone-renin ratio (ARR) when hypertension or low potassium is present. Timing and medication considerations are often reviewed by the care team.",
		Hash:            "sample-hash-2",
		Version:         1,
		CitationKey:     "DOC:Sample knowledge|CHUNK:sample-chunk-002|P:2-2",
	},
	{
		ID:              "sample-chunk-003",
		SourceDoc:       "Sample knowledge",
		SourcePageStart: intPtr(3),
		SourcePageEnd:   intPtr(3),
		Text:            "Clinics may provide prep instructions such as taking a prescribed dexamethasone tablet at night before morning labs, avoiding certain supplements before metanephrine testing, or noting current blood pressure medications before ARR testing. Patients should follow their clinician's specific instructions.",
		Hash:            "sample-hash-3",
		Version:         1,
		CitationKey:     "DOC:Sample knowledge|CHUNK:sample-chunk-003|P:3-3",
	},
}

func intPtr(v int) *int {
	return &v
}

// KnowledgeService serves the retrieval path. The chunk and embedding
// repos may be nil (no store configured); retrieval then runs against
// the built-in sample corpus with keyword ranking.
type KnowledgeService struct {
	chunks         *repo.ChunkRepo
	embeddings     *repo.EmbeddingRepo
	manager        *ai.Manager
	chunkCache     *expirable.LRU[string, []model.KnowledgeChunk]
	embeddingCache *expirable.LRU[string, []model.KnowledgeEmbedding]
}

func NewKnowledgeService(chunks *repo.ChunkRepo, embeddings *repo.EmbeddingRepo, manager *ai.Manager) *KnowledgeService {
	return &KnowledgeService{
		chunks:         chunks,
		embeddings:     embeddings,
		manager:        manager,
		chunkCache:     expirable.NewLRU[string, []model.KnowledgeChunk](1, nil, corpusCacheTTL),
		embeddingCache: expirable.NewLRU[string, []model.KnowledgeEmbedding](1, nil, corpusCacheTTL),
	}
}

// BuildCitationKey renders the canonical citation key. The format is
// load-bearing: inline citation extraction matches it byte for byte.
func BuildCitationKey(sourceDoc, chunkID string, pageStart, pageEnd *int) string {
	switch {
	case pageStart != nil && pageEnd != nil:
		return fmt.Sprintf("DOC:%s|CHUNK:%s|P:%d-%d", sourceDoc, chunkID, *pageStart, *pageEnd)
	case pageStart != nil:
		return fmt.Sprintf("DOC:%s|CHUNK:%s|P:%d-%d", sourceDoc, chunkID, *pageStart, *pageStart)
	default:
		return fmt.Sprintf("DOC:%s|CHUNK:%s|P:NA", sourceDoc, chunkID)
	}
}

var queryTokenSplit = regexp.MustCompile(`\W+`)

// ScoreChunkKeyword sums, over the query tokens, the count of
// case-insensitive whole-word occurrences in the chunk text.
func ScoreChunkKeyword(query, chunkText string) int {
	haystack := strings.ToLower(chunkText)
	score := 0
	for _, token := range queryTokenSplit.Split(strings.ToLower(query), -1) {
		if token == "" {
			continue
		}
		wordPattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(token) + `\b`)
		if err != nil {
			continue
		}
		score += len(wordPattern.FindAllStringIndex(haystack, -1))
	}
	return score
}

// RankChunksByKeyword orders chunks by descending keyword score with a
// deterministic tie-break on ascending chunk id.
func RankChunksByKeyword(query string, chunks []model.KnowledgeChunk) []model.KnowledgeChunk {
	type scored struct {
		chunk model.KnowledgeChunk
		score int
	}
	items := make([]scored, 0, len(chunks))
	for _, chunk := range chunks {
		items = append(items, scored{chunk: chunk, score: ScoreChunkKeyword(query, chunk.Text)})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].chunk.ID < items[j].chunk.ID
	})
	ranked := make([]model.KnowledgeChunk, 0, len(items))
	for _, item := range items {
		ranked = append(ranked, item.chunk)
	}
	return ranked
}

// CosineSimilarity never divides by zero: mismatched lengths or a zero
// norm yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func rankChunksByEmbedding(queryVec []float32, embeddings []model.KnowledgeEmbedding, chunksByID map[string]model.KnowledgeChunk) []model.KnowledgeChunk {
	type scored struct {
		chunk model.KnowledgeChunk
		score float64
	}
	items := make([]scored, 0, len(embeddings))
	for _, emb := range embeddings {
		chunk, ok := chunksByID[emb.ChunkID]
		if !ok {
			continue
		}
		items = append(items, scored{chunk: chunk, score: CosineSimilarity(queryVec, emb.Vector)})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].chunk.ID < items[j].chunk.ID
	})
	ranked := make([]model.KnowledgeChunk, 0, len(items))
	for _, item := range items {
		ranked = append(ranked, item.chunk)
	}
	return ranked
}

// ListChunks returns the current corpus: stored chunks when a store is
// configured and non-empty, else the sample corpus. Results are cached
// for a short window; staleness is bounded by the TTL only.
func (s *KnowledgeService) ListChunks(ctx context.Context) []model.KnowledgeChunk {
	if s.chunks == nil {
		return sampleChunks
	}
	if cached, ok := s.chunkCache.Get("corpus"); ok {
		return cached
	}
	chunks, err := s.chunks.List(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("list chunks failed, using sample knowledge", zap.Error(err))
		return sampleChunks
	}
	if len(chunks) == 0 {
		return sampleChunks
	}
	s.chunkCache.Add("corpus", chunks)
	return chunks
}

func (s *KnowledgeService) listEmbeddings(ctx context.Context) []model.KnowledgeEmbedding {
	if s.embeddings == nil {
		return nil
	}
	if cached, ok := s.embeddingCache.Get("embeddings"); ok {
		return cached
	}
	embeddings, err := s.embeddings.List(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Warn("list embeddings failed", zap.Error(err))
		return nil
	}
	s.embeddingCache.Add("embeddings", embeddings)
	return embeddings
}

func makeSnippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetMaxChars {
		return text
	}
	return strings.TrimSpace(string(runes[:snippetMaxChars])) + "…"
}

func toRetrievalChunk(chunk model.KnowledgeChunk) RetrievalChunk {
	var pageRange *string
	switch {
	case chunk.SourcePageStart != nil && chunk.SourcePageEnd != nil:
		v := fmt.Sprintf("%d-%d", *chunk.SourcePageStart, *chunk.SourcePageEnd)
		pageRange = &v
	case chunk.SourcePageStart != nil:
		v := fmt.Sprintf("%d-%d", *chunk.SourcePageStart, *chunk.SourcePageStart)
		pageRange = &v
	}
	return RetrievalChunk{
		ChunkID:     chunk.ID,
		SourceDoc:   chunk.SourceDoc,
		PageRange:   pageRange,
		TextSnippet: makeSnippet(chunk.Text),
		CitationKey: chunk.CitationKey,
	}
}

// Retrieve returns the top-k chunks for the query. Embedding ranking
// is used only when an embedder is configured, at least one embedding
// is stored, and a query embedding can be obtained; every other path
// falls back to keyword ranking. An empty corpus yields an empty
// result with no error.
func (s *KnowledgeService) Retrieve(ctx context.Context, query string, k int) []RetrievalChunk {
	chunks := s.ListChunks(ctx)
	if len(chunks) == 0 {
		return nil
	}

	var ranked []model.KnowledgeChunk
	embeddings := s.listEmbeddings(ctx)
	if s.manager.EmbeddingEnabled() && len(embeddings) > 0 {
		queryVec, err := s.manager.Embed(ctx, query)
		if err != nil || len(queryVec) == 0 {
			if err != nil {
				logutil.GetLogger(ctx).Warn("query embedding failed, falling back to keyword ranking", zap.Error(err))
			}
			ranked = RankChunksByKeyword(query, chunks)
		} else {
			chunksByID := make(map[string]model.KnowledgeChunk, len(chunks))
			for _, chunk := range chunks {
				chunksByID[chunk.ID] = chunk
			}
			ranked = rankChunksByEmbedding(queryVec, embeddings, chunksByID)
		}
	} else {
		ranked = RankChunksByKeyword(query, chunks)
	}

	if k > len(ranked) {
		k = len(ranked)
	}
	results := make([]RetrievalChunk, 0, k)
	for _, chunk := range ranked[:k] {
		results = append(results, toRetrievalChunk(chunk))
	}
	return results
}
