package docextract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	markupCompatNS   = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

// ZipDOCXReader reads paragraphs from word/document.xml inside the DOCX
// archive. Runs of a paragraph are concatenated; tabs and breaks inside a
// paragraph are kept as \t and \n.
type ZipDOCXReader struct{}

func (ZipDOCXReader) ReadParagraphs(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}
	return nil, errors.New("document.xml not found in docx")
}

// parseDocumentXML returns paragraphs in the order they open. Paragraphs
// nested inside text boxes are kept apart from the paragraph that holds
// them. mc:Fallback repeats its mc:Choice sibling and is skipped.
func parseDocumentXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	type openPara struct {
		slot int
		text strings.Builder
	}
	var (
		paragraphs []string
		stack      []*openPara
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == markupCompatNS && t.Name.Local == "Fallback" {
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("decode document.xml: %w", err)
				}
				continue
			}
			if t.Name.Space != wordprocessingNS {
				continue
			}
			var cur *strings.Builder
			if n := len(stack); n > 0 {
				cur = &stack[n-1].text
			}
			switch t.Name.Local {
			case "p":
				stack = append(stack, &openPara{slot: len(paragraphs)})
				paragraphs = append(paragraphs, "")
			case "t":
				inText = true
			case "tab":
				if cur != nil {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if cur != nil {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				if n := len(stack); n > 0 {
					top := stack[n-1]
					paragraphs[top.slot] = top.text.String()
					stack = stack[:n-1]
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if n := len(stack); n > 0 && inText {
				stack[n-1].text.Write(t)
			}
		}
	}
	return paragraphs, nil
}
