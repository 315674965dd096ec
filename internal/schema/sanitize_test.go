package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestTrimQuote_BoundsToTwentyFiveWords(t *testing.T) {
	short := "a few words only"
	require.Equal(t, short, TrimQuote(short))

	long := strings.Repeat("word ", 40)
	trimmed := TrimQuote(long)
	require.Len(t, strings.Fields(trimmed), 25)
	require.True(t, strings.HasSuffix(trimmed, "…"))
}

func TestSanitizeCitations_DropsUnknownKeys(t *testing.T) {
	allowed := map[string]struct{}{
		"DOC:guide.pdf|CHUNK:abc|P:1-2": {},
	}
	citations := []Citation{
		{CitationKey: "DOC:guide.pdf|CHUNK:abc|P:1-2", Quote: strPtr("some quote")},
		{CitationKey: "DOC:fabricated.pdf|CHUNK:zzz|P:9-9", Quote: nil},
	}
	sanitized := SanitizeCitations(citations, allowed)
	require.Len(t, sanitized, 1)
	require.Equal(t, "DOC:guide.pdf|CHUNK:abc|P:1-2", sanitized[0].CitationKey)
	require.NotNil(t, sanitized[0].Quote)
}

func TestSanitizeCitations_TrimsLongQuotes(t *testing.T) {
	allowed := map[string]struct{}{"DOC:a|CHUNK:1|P:NA": {}}
	long := strings.Repeat("token ", 30)
	sanitized := SanitizeCitations([]Citation{{CitationKey: "DOC:a|CHUNK:1|P:NA", Quote: strPtr(long)}}, allowed)
	require.Len(t, sanitized, 1)
	require.Len(t, strings.Fields(*sanitized[0].Quote), 25)
}

func TestExtractCitationKeys_OrderedAndDeduped(t *testing.T) {
	text := "See DOC:guide.pdf|CHUNK:abc-1|P:1-2 and again DOC:guide.pdf|CHUNK:abc-1|P:1-2 plus DOC:other.pdf|CHUNK:def|P:NA as well"
	keys := ExtractCitationKeys(text)
	require.Equal(t, []string{
		"DOC:guide.pdf|CHUNK:abc-1|P:1-2",
		"DOC:other.pdf|CHUNK:def|P:NA",
	}, keys)
}

func TestNormalizeAssistantMessage_ExtractsDisclaimer(t *testing.T) {
	raw := "Follow-up is typically scheduled. Disclaimer: This is general education only."
	normalized := NormalizeAssistantMessage(raw)
	require.Equal(t, "Follow-up is typically scheduled.", normalized.Message)
	require.Equal(t, "This is general education only.", normalized.ExtractedDisclaimer)
}

func TestNormalizeAssistantMessage_StripsInlineCitations(t *testing.T) {
	raw := "Hormone testing is common [see DOC:guide.pdf|CHUNK:abc|P:1-2] for nodules."
	normalized := NormalizeAssistantMessage(raw)
	require.Equal(t, "Hormone testing is common for nodules.", normalized.Message)
	require.Equal(t, []string{"DOC:guide.pdf|CHUNK:abc|P:1-2"}, normalized.ExtractedKeys)
}

func TestNormalizeAssistantMessage_CollapsesWhitespace(t *testing.T) {
	normalized := NormalizeAssistantMessage("too   many    spaces")
	require.Equal(t, "too many spaces", normalized.Message)
}
