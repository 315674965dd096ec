package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dslipak/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractPages reads a source document and returns page-numbered text.
// PDFs keep their native pagination; markdown and plain text enter the
// stream as a single page.
func ExtractPages(path string) ([]PageText, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDFPages(path)
	case ".md", ".markdown":
		return extractMarkdownPages(path)
	case ".txt":
		return extractTextPages(path)
	default:
		return nil, fmt.Errorf("unsupported document type: %s", path)
	}
}

func extractPDFPages(path string) ([]PageText, error) {
	reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var pages []PageText
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, PageText{Page: i, Text: content})
	}

	hasText := false
	for _, page := range pages {
		if normalizeText(page.Text) != "" {
			hasText = true
			break
		}
	}
	if hasText {
		sort.Slice(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })
		return pages, nil
	}

	// Per-page extraction yielded nothing. Fall back to the whole
	// document text split into approximate pages.
	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	cleaned := normalizeText(buf.String())
	if cleaned == "" {
		return nil, nil
	}
	if total <= 1 {
		return []PageText{{Page: 1, Text: cleaned}}, nil
	}
	approx := (len(cleaned) + total - 1) / total
	var fallback []PageText
	for i := 0; i < total; i++ {
		start := i * approx
		if start >= len(cleaned) {
			break
		}
		end := start + approx
		if end > len(cleaned) {
			end = len(cleaned)
		}
		slice := strings.TrimSpace(cleaned[start:end])
		if slice == "" {
			continue
		}
		fallback = append(fallback, PageText{Page: i + 1, Text: slice})
	}
	return fallback, nil
}

func extractMarkdownPages(path string) ([]PageText, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	md := goldmark.New()
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var sb strings.Builder
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	content := normalizeText(sb.String())
	if content == "" {
		return nil, nil
	}
	return []PageText{{Page: 1, Text: content}}, nil
}

func extractTextPages(path string) ([]PageText, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cleaned := normalizeText(string(content))
	if cleaned == "" {
		return nil, nil
	}
	return []PageText{{Page: 1, Text: cleaned}}, nil
}
