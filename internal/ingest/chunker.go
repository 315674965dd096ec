package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
)

// PageText is page-numbered text handed over by document extraction.
type PageText struct {
	Page int
	Text string
}

type Chunk struct {
	Text       string
	TokenCount int
	PageStart  *int
	PageEnd    *int
}

type ChunkWithHash struct {
	Chunk
	Hash string
}

// ChunkOptions tune the sliding token window. A nil or non-finite
// field silently falls back to its default; the relationship between
// the values is deliberately not validated. A degenerate overlap is
// caught by the no-forward-progress guard in ChunkPages instead.
type ChunkOptions struct {
	MinTokens     *float64
	MaxTokens     *float64
	TargetTokens  *float64
	OverlapTokens *float64
}

const (
	defaultMinTokens     = 400
	defaultMaxTokens     = 800
	defaultTargetTokens  = 600
	defaultOverlapTokens = 120
)

type chunkSettings struct {
	minTokens     int
	maxTokens     int
	targetTokens  int
	overlapTokens int
}

func resolveOption(value *float64, fallback int) int {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return fallback
	}
	return int(*value)
}

func (o ChunkOptions) resolve() chunkSettings {
	return chunkSettings{
		minTokens:     resolveOption(o.MinTokens, defaultMinTokens),
		maxTokens:     resolveOption(o.MaxTokens, defaultMaxTokens),
		targetTokens:  resolveOption(o.TargetTokens, defaultTargetTokens),
		overlapTokens: resolveOption(o.OverlapTokens, defaultOverlapTokens),
	}
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// HashText is the content address used for chunk deduplication. It is
// a pure function of the text, so identical windows collapse to one
// hash regardless of which pages they came from.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ChunkPages concatenates the normalized page texts into one token
// stream, recording the originating page per token, then walks it with
// a sliding window: the window ends at start+target, is extended to
// start+min when short with tokens remaining, and clamped to
// start+max. The next window starts at end-overlap; the walk stops
// when that would not advance or the stream is exhausted.
func ChunkPages(pages []PageText, opts ChunkOptions) []Chunk {
	settings := opts.resolve()

	var tokens []string
	var tokenPages []int
	for _, page := range pages {
		normalized := normalizeText(page.Text)
		if normalized == "" {
			continue
		}
		for _, token := range strings.Fields(normalized) {
			tokens = append(tokens, token)
			tokenPages = append(tokenPages, page.Page)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < len(tokens) {
		end := start + settings.targetTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		if end-start < settings.minTokens && end < len(tokens) {
			end = start + settings.minTokens
			if end > len(tokens) {
				end = len(tokens)
			}
		}
		if end-start > settings.maxTokens {
			end = start + settings.maxTokens
		}

		pageStart := tokenPages[start]
		pageEnd := tokenPages[start]
		for _, page := range tokenPages[start:end] {
			if page < pageStart {
				pageStart = page
			}
			if page > pageEnd {
				pageEnd = page
			}
		}

		text := normalizeText(strings.Join(tokens[start:end], " "))
		if text != "" {
			ps, pe := pageStart, pageEnd
			chunks = append(chunks, Chunk{
				Text:       text,
				TokenCount: end - start,
				PageStart:  &ps,
				PageEnd:    &pe,
			})
		}

		if end >= len(tokens) {
			break
		}
		next := end - settings.overlapTokens
		if next <= start {
			break
		}
		start = next
	}
	return chunks
}

// DedupeChunks keeps the first chunk seen per content hash, in input
// order.
func DedupeChunks(chunks []Chunk) []ChunkWithHash {
	seen := make(map[string]struct{}, len(chunks))
	deduped := make([]ChunkWithHash, 0, len(chunks))
	for _, chunk := range chunks {
		hash := HashText(chunk.Text)
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		deduped = append(deduped, ChunkWithHash{Chunk: chunk, Hash: hash})
	}
	return deduped
}
