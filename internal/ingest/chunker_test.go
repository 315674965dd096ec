package ingest

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

func makeTokens(n int) string {
	tokens := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tokens = append(tokens, fmt.Sprintf("w%d", i))
	}
	return strings.Join(tokens, " ")
}

func TestChunkPages_SlidingWindowWithOverlap(t *testing.T) {
	pages := []PageText{{Page: 1, Text: makeTokens(10)}}
	chunks := ChunkPages(pages, ChunkOptions{
		MinTokens:     floatPtr(2),
		MaxTokens:     floatPtr(4),
		TargetTokens:  floatPtr(3),
		OverlapTokens: floatPtr(1),
	})
	require.Len(t, chunks, 5)
	require.Equal(t, "w0 w1 w2", chunks[0].Text)
	require.Equal(t, "w2 w3 w4", chunks[1].Text)
	require.Equal(t, "w8 w9", chunks[4].Text)
	require.Equal(t, 2, chunks[4].TokenCount)
}

func TestChunkPages_NonFiniteOptionsFallBackToDefaults(t *testing.T) {
	pages := []PageText{{Page: 1, Text: makeTokens(50)}}
	chunks := ChunkPages(pages, ChunkOptions{
		MinTokens:    floatPtr(math.NaN()),
		MaxTokens:    floatPtr(math.Inf(1)),
		TargetTokens: nil,
	})
	require.Len(t, chunks, 1)
	require.Equal(t, 50, chunks[0].TokenCount)
}

func TestChunkPages_StopsWithoutForwardProgress(t *testing.T) {
	pages := []PageText{{Page: 1, Text: makeTokens(10)}}
	chunks := ChunkPages(pages, ChunkOptions{
		MinTokens:     floatPtr(2),
		MaxTokens:     floatPtr(2),
		TargetTokens:  floatPtr(2),
		OverlapTokens: floatPtr(5),
	})
	require.Len(t, chunks, 1)
}

func TestChunkPages_PageProvenanceSpansPages(t *testing.T) {
	pages := []PageText{
		{Page: 1, Text: makeTokens(3)},
		{Page: 2, Text: "alpha beta gamma"},
	}
	chunks := ChunkPages(pages, ChunkOptions{
		MinTokens:     floatPtr(1),
		MaxTokens:     floatPtr(10),
		TargetTokens:  floatPtr(6),
		OverlapTokens: floatPtr(0),
	})
	require.Len(t, chunks, 1)
	require.NotNil(t, chunks[0].PageStart)
	require.NotNil(t, chunks[0].PageEnd)
	require.Equal(t, 1, *chunks[0].PageStart)
	require.Equal(t, 2, *chunks[0].PageEnd)
}

func TestChunkPages_SkipsEmptyPages(t *testing.T) {
	pages := []PageText{
		{Page: 1, Text: "   \n\t  "},
		{Page: 2, Text: ""},
	}
	require.Nil(t, ChunkPages(pages, ChunkOptions{}))
}

func TestChunkPages_NormalizesWhitespace(t *testing.T) {
	pages := []PageText{{Page: 1, Text: "  one \n two\t\tthree  "}}
	chunks := ChunkPages(pages, ChunkOptions{
		MinTokens:     floatPtr(1),
		MaxTokens:     floatPtr(10),
		TargetTokens:  floatPtr(10),
		OverlapTokens: floatPtr(0),
	})
	require.Len(t, chunks, 1)
	require.Equal(t, "one two three", chunks[0].Text)
}

func TestDedupeChunks_KeepsFirstOccurrenceInOrder(t *testing.T) {
	chunks := []Chunk{
		{Text: "alpha"},
		{Text: "beta"},
		{Text: "alpha"},
		{Text: "gamma"},
		{Text: "beta"},
	}
	deduped := DedupeChunks(chunks)
	require.Len(t, deduped, 3)
	require.Equal(t, "alpha", deduped[0].Text)
	require.Equal(t, "beta", deduped[1].Text)
	require.Equal(t, "gamma", deduped[2].Text)
	require.Equal(t, HashText("alpha"), deduped[0].Hash)
}

func TestHashText_Deterministic(t *testing.T) {
	require.Equal(t, HashText("same text"), HashText("same text"))
	require.NotEqual(t, HashText("same text"), HashText("other text"))
}
