package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/hyperjump/tanya/pkg/utils"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// wordNS is the WordprocessingML namespace.
const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// partNameRe extracts PartName from Override elements in [Content_Types].xml.
var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

// partNameRe2 handles the case where ContentType appears before PartName.
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil || data == nil {
		return ""
	}
	content := string(data)
	if matches := partNameRe.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	if matches := partNameRe2.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	return ""
}

// readZipFile returns the contents of name, or nil if the archive has no such entry.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, nil
}

// docxParagraphs returns the body paragraphs of a .docx file. A heading paragraph starts a new
// section; its text becomes the locator of the paragraphs that follow. IDs are "s<section>-p<n>".
func docxParagraphs(content []byte) ([]paragraph, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: %w", err)
	}
	if docXML == nil {
		return nil, fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	blocks, err := parseDocxBlocks(docXML)
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: %w", err)
	}

	var (
		out     []paragraph
		section = 1
		n       = 0
		locator string
	)
	for _, b := range blocks {
		if b.heading {
			if n > 0 || locator != "" {
				section++
			}
			n = 0
			locator = b.text
			continue
		}
		n++
		out = append(out, paragraph{
			id:      fmt.Sprintf("s%d-p%d", section, n),
			locator: locator,
			text:    b.text,
		})
	}
	return out, nil
}

type docxBlock struct {
	text    string
	heading bool
}

// parseDocxBlocks walks document.xml and returns one block per non-empty top-level <w:p>.
// Text of paragraphs nested in text boxes is folded into the enclosing paragraph.
func parseDocxBlocks(docXML []byte) ([]docxBlock, error) {
	dec := xml.NewDecoder(bytes.NewReader(docXML))
	var (
		blocks []docxBlock
		depth  int
		inText bool
		style  string
		sb     strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					sb.Reset()
					style = ""
				}
				depth++
			case "pStyle":
				if depth == 1 {
					for _, a := range t.Attr {
						if a.Name.Local == "val" {
							style = a.Value
						}
					}
				}
			case "t":
				inText = depth > 0
			case "tab", "br", "cr":
				if depth > 0 {
					sb.WriteByte(' ')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth > 0 {
					sb.WriteByte(' ')
					continue
				}
				if text := utils.CollapseSpace(sb.String()); text != "" {
					blocks = append(blocks, docxBlock{text: text, heading: isHeadingStyle(style)})
				}
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return blocks, nil
}

func isHeadingStyle(style string) bool {
	s := strings.ToLower(style)
	return strings.HasPrefix(s, "heading") || s == "title"
}
