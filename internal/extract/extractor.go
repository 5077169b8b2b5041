// Package extract converts uploaded PDF and DOCX bytes into normalized plain text.
package extract

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// fragmentSeparator joins per-page and per-paragraph fragments so paragraph
// boundaries survive into chunking.
const fragmentSeparator = "\n\n"

// Extractor extracts plain text from document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract converts content of the declared format into normalized text.
// Formats outside the allow-list fail with domain.ErrUnsupportedFormat before
// any parsing. Unparseable bytes fail with domain.ErrExtraction. A document
// with zero extractable fragments (e.g. scanned images only) fails with
// domain.ErrEmptyDocument: a zero-chunk index can never produce a meaningful
// retrieval result.
func (e *Extractor) Extract(content []byte, format domain.Format) (string, error) {
	var (
		fragments []string
		err       error
	)

	switch format {
	case domain.FormatPDF:
		fragments, err = extractPDF(content)
	case domain.FormatDOCX:
		fragments, err = extractDOCX(content)
	default:
		return "", fmt.Errorf("format %q: %w", format, domain.ErrUnsupportedFormat)
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %s: %w", format, err, domain.ErrExtraction)
	}

	text := normalize(fragments)
	if text == "" {
		return "", domain.ErrEmptyDocument
	}
	return text, nil
}

// normalize joins non-empty fragments with a blank line and canonicalizes
// line endings. Empty fragments (image-only pages, empty paragraphs) are
// skipped, not treated as errors.
func normalize(fragments []string) string {
	kept := make([]string, 0, len(fragments))
	for _, f := range fragments {
		f = strings.ReplaceAll(f, "\r\n", "\n")
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, fragmentSeparator)
}
