package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// extractDOCX returns one text fragment per <w:p> paragraph. DOCX is a ZIP
// containing word/document.xml (OOXML); text runs within a paragraph are
// concatenated without a separator since runs may split mid-word.
func extractDOCX(content []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}

	docXML, err := readMainDocument(zr)
	if err != nil {
		return nil, err
	}

	return parseDocumentXML(docXML)
}

// parseDocumentXML walks the OOXML token stream: character data inside <w:t>
// accumulates into the current paragraph, </w:p> closes it. The decoder
// resolves character references (&#233;, &#8220;) that tag scraping would
// leak into the extracted text.
func parseDocumentXML(docXML []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(docXML))

	var fragments []string
	var para strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", docxDocumentXMLPath, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if para.Len() > 0 {
					fragments = append(fragments, para.String())
				}
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	// Text runs outside any closed paragraph (malformed but extractable).
	if para.Len() > 0 {
		fragments = append(fragments, para.String())
	}
	return fragments, nil
}

// readMainDocument locates and reads the main document part, preferring the
// path declared in [Content_Types].xml over the conventional default.
func readMainDocument(zr *zip.Reader) ([]byte, error) {
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}

	for _, f := range zr.File {
		if f.Name != docPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", docPath)
}

// contentTypes mirrors the [Content_Types].xml overrides we care about.
type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return ""
		}

		var types contentTypes
		if err := xml.Unmarshal(data, &types); err != nil {
			return ""
		}
		for _, o := range types.Overrides {
			if o.ContentType == docxMainContentType {
				return strings.TrimPrefix(o.PartName, "/")
			}
		}
		return ""
	}
	return ""
}
