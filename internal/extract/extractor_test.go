package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// buildDocx assembles a minimal .docx zip with the given document.xml body.
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document.xml: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtract_DOCXParagraphs(t *testing.T) {
	doc := buildDocx(t, `<w:document><w:body>`+
		`<w:p><w:r><w:t>Intro paragraph.</w:t></w:r></w:p>`+
		`<w:p w:rsidR="00A"><w:r><w:t>Body para</w:t></w:r><w:r><w:t xml:space="preserve">graph.</w:t></w:r></w:p>`+
		`<w:p></w:p>`+
		`<w:p><w:r><w:t>Conclusion paragraph.</w:t></w:r></w:p>`+
		`</w:body></w:document>`)

	e := NewExtractor()
	got, err := e.Extract(doc, domain.FormatDOCX)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := "Intro paragraph.\n\nBody paragraph.\n\nConclusion paragraph."
	if got != want {
		t.Errorf("extracted text:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestExtract_DOCXEntities(t *testing.T) {
	doc := buildDocx(t, `<w:document><w:body><w:p><w:r><w:t>Q&amp;A &lt;session&gt;</w:t></w:r></w:p></w:body></w:document>`)

	e := NewExtractor()
	got, err := e.Extract(doc, domain.FormatDOCX)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Q&A <session>" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_DOCXCharacterReferences(t *testing.T) {
	doc := buildDocx(t, `<w:document><w:body><w:p><w:r><w:t>caf&#233; &#8220;quoted&#8221;</w:t></w:r></w:p></w:body></w:document>`)

	e := NewExtractor()
	got, err := e.Extract(doc, domain.FormatDOCX)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "café “quoted”" {
		t.Errorf("numeric character references not decoded: got %q", got)
	}
}

func TestExtract_DOCXNestedRuns(t *testing.T) {
	// Runs inside a hyperlink still belong to the enclosing paragraph.
	doc := buildDocx(t, `<w:document><w:body><w:p>`+
		`<w:r><w:t xml:space="preserve">See </w:t></w:r>`+
		`<w:hyperlink><w:r><w:t>the appendix</w:t></w:r></w:hyperlink>`+
		`</w:p></w:body></w:document>`)

	e := NewExtractor()
	got, err := e.Extract(doc, domain.FormatDOCX)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "See the appendix" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_DOCXEmpty(t *testing.T) {
	doc := buildDocx(t, `<w:document><w:body><w:p></w:p></w:body></w:document>`)

	e := NewExtractor()
	_, err := e.Extract(doc, domain.FormatDOCX)
	if !errors.Is(err, domain.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if !errors.Is(err, domain.ErrExtraction) {
		t.Error("ErrEmptyDocument should unwrap to ErrExtraction")
	}
}

func TestExtract_DOCXNotAZip(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract([]byte("definitely not a zip"), domain.FormatDOCX)
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract([]byte("plain text"), domain.Format("txt"))
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtract_PDFInvalidBytes(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract([]byte("%PDF-but-not-really"), domain.FormatPDF)
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	got := normalize([]string{"  page one\r\ntext ", "", "   ", "page two"})
	want := "page one\ntext\n\npage two"
	if got != want {
		t.Errorf("normalize:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestFormatFromFilename(t *testing.T) {
	cases := []struct {
		filename string
		want     domain.Format
		wantErr  bool
	}{
		{"report.pdf", domain.FormatPDF, false},
		{"Notes.DOCX", domain.FormatDOCX, false},
		{"archive.tar.pdf", domain.FormatPDF, false},
		{"malware.exe", "", true},
		{"noextension", "", true},
	}
	for _, c := range cases {
		got, err := domain.FormatFromFilename(c.filename)
		if c.wantErr {
			if !errors.Is(err, domain.ErrUnsupportedFormat) {
				t.Errorf("%s: expected ErrUnsupportedFormat, got %v", c.filename, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", c.filename, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s: got %q, want %q", c.filename, got, c.want)
		}
	}
}
