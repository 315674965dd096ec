package schema

import (
	"regexp"
	"strings"
)

const maxQuoteWords = 25

var (
	citationKeyPattern = regexp.MustCompile(`(?i)DOC:[^|\]\)\s]+(?: [^|\]\)\s]+)*\|CHUNK:[0-9a-f-]+\|P:[^\]\)\s,]+`)
	bracketedCitation  = regexp.MustCompile(`\s*\[[^\]]*DOC:[^\]]+\]`)
	parenthesized      = regexp.MustCompile(`\s*\([^\)]*DOC:[^\)]*\)`)
	bareCitation       = regexp.MustCompile(`(?i)\s*DOC:[^|\]\)\s]+(?: [^|\]\)\s]+)*\|CHUNK:[0-9a-f-]+\|P:[^\]\)\s,]+`)
	disclaimerMarker   = regexp.MustCompile(`(?i)(?:^|\s)Disclaimer\s*[:\-]`)
	disclaimerPrefix   = regexp.MustCompile(`(?is)^.*?Disclaimer\s*[:\-]\s*`)
	repeatedWhitespace = regexp.MustCompile(`\s{2,}`)
)

// TrimQuote bounds a citation quote to 25 words with an ellipsis.
func TrimQuote(quote string) string {
	trimmed := strings.TrimSpace(quote)
	words := strings.Fields(trimmed)
	if len(words) <= maxQuoteWords {
		return trimmed
	}
	return strings.Join(words[:maxQuoteWords], " ") + "…"
}

// SanitizeCitations drops every citation whose key is not in the
// current turn's retrieved-chunk allowlist and trims quotes. The model
// can never introduce a source that was not supplied to it.
func SanitizeCitations(citations []Citation, allowed map[string]struct{}) []Citation {
	sanitized := make([]Citation, 0, len(citations))
	for _, item := range citations {
		if _, ok := allowed[item.CitationKey]; !ok {
			continue
		}
		quote := item.Quote
		if quote != nil {
			trimmed := TrimQuote(*quote)
			quote = &trimmed
		}
		sanitized = append(sanitized, Citation{CitationKey: item.CitationKey, Quote: quote})
	}
	return sanitized
}

// ExtractCitationKeys pulls citation-key markers out of free text, in
// order of first appearance, without duplicates.
func ExtractCitationKeys(text string) []string {
	matches := citationKeyPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	keys := make([]string, 0, len(matches))
	for _, match := range matches {
		key := strings.TrimSpace(match)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func stripInlineCitations(text string) string {
	text = bracketedCitation.ReplaceAllString(text, "")
	text = parenthesized.ReplaceAllString(text, "")
	return bareCitation.ReplaceAllString(text, "")
}

type NormalizedMessage struct {
	Message             string
	ExtractedDisclaimer string
	ExtractedKeys       []string
}

// NormalizeAssistantMessage splits out an embedded "Disclaimer:"
// section, strips inline citation markers from the visible text, and
// collapses repeated whitespace. Citation keys found inline are
// returned so callers can recover citations the model put in the
// wrong place.
func NormalizeAssistantMessage(raw string) NormalizedMessage {
	message := raw
	extractedKeys := ExtractCitationKeys(message)

	var extractedDisclaimer string
	if loc := disclaimerMarker.FindStringIndex(message); loc != nil {
		tail := message[loc[0]:]
		disclaimerText := strings.TrimSpace(disclaimerPrefix.ReplaceAllString(tail, ""))
		if disclaimerText != "" {
			extractedDisclaimer = disclaimerText
		}
		message = strings.TrimSpace(message[:loc[0]])
	}

	message = stripInlineCitations(message)
	message = strings.TrimSpace(repeatedWhitespace.ReplaceAllString(message, " "))

	return NormalizedMessage{
		Message:             message,
		ExtractedDisclaimer: extractedDisclaimer,
		ExtractedKeys:       extractedKeys,
	}
}
