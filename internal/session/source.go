package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/sourceid"
)

// Source kinds. Saved turns go to a collection named after the kind, with a "_chat" suffix
// in chat mode.
const (
	KindDocs    = "docs"
	KindYouTube = "youtube"
	KindTable   = "table"
)

// Source yields the passage set of one session.
type Source interface {
	Kind() string
	// Locator is a stable identifier of the underlying source, recorded on saved turns.
	Locator() string
	Load(ctx context.Context) ([]models.Passage, error)
}

// Transcriber turns a video into transcript passages.
type Transcriber interface {
	Transcribe(ctx context.Context, videoID string) ([]models.Passage, error)
}

// DocumentSource reads paragraphs from a Word-style document (.docx, .odt, .rtf) or a PDF.
type DocumentSource struct {
	path      string
	extractor *extract.Extractor
}

// NewDocumentSource checks that path exists and has an accepted extension.
func NewDocumentSource(path string, extractor *extract.Extractor) (*DocumentSource, error) {
	if err := checkDocument(path); err != nil {
		return nil, err
	}
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	return &DocumentSource{path: path, extractor: extractor}, nil
}

func checkDocument(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: file not found: %s", models.ErrInvalidInput, path)
	}
	if ext := filepath.Ext(path); !extract.IsDocument(ext) {
		return fmt.Errorf("%w: unsupported document type %q, allowed %v", models.ErrInvalidInput, ext, extract.DocumentExtensions)
	}
	return nil
}

func (s *DocumentSource) Kind() string { return KindDocs }

func (s *DocumentSource) Locator() string { return sourceid.Document(s.path) }

// Load extracts the document's paragraphs.
func (s *DocumentSource) Load(ctx context.Context) ([]models.Passage, error) {
	if err := checkDocument(s.path); err != nil {
		return nil, err
	}
	passages, err := s.extractor.Passages(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidInput, err)
	}
	return passages, nil
}

// TranscriptSource transcribes a YouTube video's audio.
type TranscriptSource struct {
	videoID     string
	transcriber Transcriber
}

// NewTranscriptSource requires a non-empty video ID and a transcriber.
func NewTranscriptSource(videoID string, transcriber Transcriber) (*TranscriptSource, error) {
	if videoID == "" {
		return nil, fmt.Errorf("%w: video id is missing", models.ErrInvalidInput)
	}
	if transcriber == nil {
		return nil, fmt.Errorf("%w: no transcriber configured", models.ErrConfiguration)
	}
	return &TranscriptSource{videoID: videoID, transcriber: transcriber}, nil
}

func (s *TranscriptSource) Kind() string { return KindYouTube }

func (s *TranscriptSource) Locator() string { return sourceid.Video(s.videoID) }

// Load transcribes the video.
func (s *TranscriptSource) Load(ctx context.Context) ([]models.Passage, error) {
	return s.transcriber.Transcribe(ctx, s.videoID)
}

// TableSource serves a caller-supplied passage set.
type TableSource struct {
	passages []models.Passage
	locator  string
}

// NewTableSource validates and copies passages.
func NewTableSource(passages []models.Passage) (*TableSource, error) {
	if err := models.ValidatePassages(passages); err != nil {
		return nil, err
	}
	cp := make([]models.Passage, len(passages))
	copy(cp, passages)
	return &TableSource{passages: cp, locator: sourceid.Table(cp)}, nil
}

// LoadTableSource reads a .csv or .xlsx table with a content column.
func LoadTableSource(path string, extractor *extract.Extractor) (*TableSource, error) {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: file not found: %s", models.ErrInvalidInput, path)
	}
	passages, err := extractor.LoadTable(path)
	if err != nil {
		return nil, err
	}
	return NewTableSource(passages)
}

func (s *TableSource) Kind() string { return KindTable }

func (s *TableSource) Locator() string { return s.locator }

// Load returns a copy of the passages.
func (s *TableSource) Load(context.Context) ([]models.Passage, error) {
	cp := make([]models.Passage, len(s.passages))
	copy(cp, s.passages)
	return cp, nil
}
