package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Format is a supported upload format.
type Format string

const (
	// FormatPDF is a PDF document.
	FormatPDF Format = "pdf"
	// FormatDOCX is an OOXML word-processing document.
	FormatDOCX Format = "docx"
)

// FormatFromFilename classifies a filename against the format allow-list.
// Returns ErrUnsupportedFormat for anything other than .pdf and .docx.
func FormatFromFilename(filename string) (Format, error) {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 {
		return "", ErrUnsupportedFormat
	}
	switch strings.ToLower(filename[idx+1:]) {
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// DocumentID derives the stable, content-addressed reference for an upload.
// Identical bytes always map to the same ID, so re-uploads are deduplicated.
func DocumentID(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:8])
}
