// Package pdf provides the two PDF-facing acquisition primitives: native
// text-layer extraction and page rasterization for OCR input.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"
)

// ErrNoPages is returned when a document decodes but contains no pages.
var ErrNoPages = errors.New("pdf contains no pages")

// TextLayerExtractor reads the native text layer embedded in a PDF's content
// streams, without rendering. It is stateless and safe for concurrent use.
type TextLayerExtractor struct{}

// NewTextLayerExtractor returns a ready-to-use extractor.
func NewTextLayerExtractor() *TextLayerExtractor {
	return &TextLayerExtractor{}
}

// Extract concatenates the text runs of each page in page order, separated
// by newlines, honoring the maxPages ceiling (0 means no limit). It returns
// the text and the number of pages read.
func (e *TextLayerExtractor) Extract(data []byte, maxPages int) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	if total == 0 {
		return "", 0, ErrNoPages
	}
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}

	var b strings.Builder
	pagesRead := 0
	for pageNum := 1; pageNum <= total; pageNum++ {
		text := extractPageText(reader, pageNum)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
		pagesRead++
	}

	return b.String(), pagesRead, nil
}

// extractPageText pulls text from a single page, preferring row-grouped
// output to preserve line structure for the downstream table parser.
func extractPageText(reader *pdf.Reader, pageNum int) string {
	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}

	var b strings.Builder
	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 {
		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
				b.WriteString(" ")
			}
			b.WriteString("\n")
		}
		return strings.TrimSpace(b.String())
	}

	// Fallback: plain text without row grouping.
	fonts := make(map[string]*pdf.Font)
	plain, err := page.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(plain)
}
