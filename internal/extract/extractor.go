// Package extract reads documents, tables and audio transcripts and splits them into passages.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/prompt"
)

// DocumentExtensions are the document formats accepted as a passage source.
var DocumentExtensions = []string{".docx", ".odt", ".rtf", ".pdf"}

// IsDocument reports whether ext (with leading dot) is an accepted document format.
func IsDocument(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range DocumentExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Extractor splits documents into passages and counts their tokens.
type Extractor struct {
	counter prompt.Counter
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCounter sets the token counter used for passage token counts.
func WithCounter(c prompt.Counter) Option {
	return func(e *Extractor) {
		if c != nil {
			e.counter = c
		}
	}
}

// NewExtractor returns a new Extractor. Tokens are counted as words by default.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{counter: prompt.WordCounter{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Passages reads the document at path and returns its non-empty paragraphs as passages.
func (e *Extractor) Passages(path string) ([]models.Passage, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.PassagesBytes(content, strings.ToLower(filepath.Ext(path)))
}

// PassagesBytes splits content into passages based on the given extension.
// ext should include the leading dot (e.g. ".docx").
func (e *Extractor) PassagesBytes(content []byte, ext string) ([]models.Passage, error) {
	var (
		paras []paragraph
		err   error
	)
	switch ext {
	case ".docx":
		paras, err = docxParagraphs(content)
	case ".pdf":
		paras, err = pdfParagraphs(content)
	case ".odt", ".rtf":
		paras, err = catParagraphs(content)
	case ".txt", ".md", "":
		text, _ := extractPlain(content)
		paras = textParagraphs(text, "s1", "")
	default:
		return nil, fmt.Errorf("%w: unsupported document format %q", models.ErrInvalidInput, ext)
	}
	if err != nil {
		return nil, err
	}
	return e.toPassages(paras), nil
}

// Count returns the token count of text with the extractor's counter.
func (e *Extractor) Count(text string) int {
	return e.counter.Count(text)
}

// paragraph is one block of text with its position in the source.
type paragraph struct {
	id      string
	locator string
	text    string
}

func (e *Extractor) toPassages(paras []paragraph) []models.Passage {
	out := make([]models.Passage, 0, len(paras))
	for _, p := range paras {
		out = append(out, models.Passage{
			ID:      p.id,
			Text:    p.text,
			Tokens:  e.counter.Count(p.text),
			Locator: p.locator,
		})
	}
	return out
}
