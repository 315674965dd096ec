package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow/adrenav/internal/model"
)

func TestBuildCitationKey(t *testing.T) {
	start, end := 3, 5
	require.Equal(t, "DOC:guide.pdf|CHUNK:abc|P:3-5", BuildCitationKey("guide.pdf", "abc", &start, &end))
	require.Equal(t, "DOC:guide.pdf|CHUNK:abc|P:3-3", BuildCitationKey("guide.pdf", "abc", &start, nil))
	require.Equal(t, "DOC:guide.pdf|CHUNK:abc|P:NA", BuildCitationKey("guide.pdf", "abc", nil, nil))
}

func TestScoreChunkKeyword_WholeWordsOnly(t *testing.T) {
	require.Equal(t, 2, ScoreChunkKeyword("test", "A test is a test."))
	// "testing" must not count as "test".
	require.Equal(t, 0, ScoreChunkKeyword("test", "testing contested attestation"))
	require.Equal(t, 1, ScoreChunkKeyword("DST prep", "The DST requires preparation."))
}

func TestScoreChunkKeyword_CaseInsensitive(t *testing.T) {
	require.Equal(t, 1, ScoreChunkKeyword("CORTISOL", "cortisol levels are checked"))
}

func TestRankChunksByKeyword_TieBreaksOnAscendingID(t *testing.T) {
	chunks := []model.KnowledgeChunk{
		{ID: "c", Text: "nothing relevant"},
		{ID: "a", Text: "nothing relevant"},
		{ID: "b", Text: "cortisol cortisol"},
	}
	ranked := RankChunksByKeyword("cortisol", chunks)
	require.Equal(t, "b", ranked[0].ID)
	require.Equal(t, "a", ranked[1].ID)
	require.Equal(t, "c", ranked[2].ID)
}

func TestRankChunksByKeyword_Deterministic(t *testing.T) {
	chunks := []model.KnowledgeChunk{
		{ID: "a", Text: "x"},
		{ID: "b", Text: "x"},
		{ID: "c", Text: "x"},
	}
	first := RankChunksByKeyword("unmatched query", chunks)
	for i := 0; i < 5; i++ {
		again := RankChunksByKeyword("unmatched query", chunks)
		require.Equal(t, first, again)
	}
	require.Equal(t, "a", first[0].ID)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	require.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestCosineSimilarity_DegenerateInputs(t *testing.T) {
	require.Zero(t, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	require.Zero(t, CosineSimilarity(nil, nil))
	require.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestMakeSnippet_BoundsLongText(t *testing.T) {
	short := "short text"
	require.Equal(t, short, makeSnippet(short))

	long := strings.Repeat("abcd ", 100)
	snippet := makeSnippet(long)
	require.True(t, strings.HasSuffix(snippet, "…"))
	require.LessOrEqual(t, len([]rune(snippet)), snippetMaxChars+1)
}

func TestKnowledgeService_SampleCorpusWithoutStore(t *testing.T) {
	svc := NewKnowledgeService(nil, nil, nil)
	chunks := svc.ListChunks(context.Background())
	require.Len(t, chunks, 3)
	require.Equal(t, "Sample knowledge", chunks[0].SourceDoc)
}

func TestKnowledgeService_RetrieveRanksSampleChunks(t *testing.T) {
	svc := NewKnowledgeService(nil, nil, nil)
	results := svc.Retrieve(context.Background(), "metanephrines before ARR testing", 2)
	require.Len(t, results, 2)
	// The prep-instructions chunk mentions both terms and must rank
	// ahead of the general overview.
	require.Equal(t, "sample-chunk-003", results[0].ChunkID)
	require.Equal(t, "DOC:Sample knowledge|CHUNK:sample-chunk-003|P:3-3", results[0].CitationKey)
	require.NotNil(t, results[0].PageRange)
	require.Equal(t, "3-3", *results[0].PageRange)
}

func TestKnowledgeService_RetrieveCapsAtCorpusSize(t *testing.T) {
	svc := NewKnowledgeService(nil, nil, nil)
	results := svc.Retrieve(context.Background(), "adrenal", 50)
	require.Len(t, results, 3)
}
