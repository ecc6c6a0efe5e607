package session

import (
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/completion"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/prompt"
	"github.com/hyperjump/tanya/internal/storage"
)

// Deps are the shared components every orchestrator built by a Factory uses.
type Deps struct {
	Embedder    embedding.Embedder
	Completer   completion.Completer
	Store       storage.Store // nil disables persistence
	Extractor   *extract.Extractor
	Transcriber Transcriber
	Logger      *zap.Logger
}

// Factory builds orchestrators for each source kind from one configuration.
type Factory struct {
	cfg       *config.Config
	deps      Deps
	assembler *prompt.Assembler
	builder   *prompt.Builder
}

// NewFactory prepares the prompt components described by cfg.Prompt.
func NewFactory(cfg *config.Config, deps Deps) (*Factory, error) {
	counter, err := prompt.NewCounter(cfg.Prompt.Tokenizer)
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.NewExtractor(extract.WithCounter(counter))
	}
	aopts := []prompt.AssemblerOption{prompt.WithCounter(counter)}
	if cfg.Prompt.Separator != "" {
		aopts = append(aopts, prompt.WithSeparator(cfg.Prompt.Separator))
	}
	header := cfg.Prompt.Header
	if header == "" {
		header = prompt.DefaultHeader
	}
	return &Factory{
		cfg:       cfg,
		deps:      deps,
		assembler: prompt.NewAssembler(aopts...),
		builder:   prompt.NewBuilder(header),
	}, nil
}

// Store returns the store used when saving is enabled, or nil.
func (f *Factory) Store() storage.Store {
	if !f.cfg.Storage.Save {
		return nil
	}
	return f.deps.Store
}

// MaxTokens is the context budget used when a caller gives none.
func (f *Factory) MaxTokens() int {
	return f.cfg.Prompt.MaxTokens
}

// Document builds an orchestrator over a Word document or PDF.
func (f *Factory) Document(path string) (*Orchestrator, error) {
	src, err := NewDocumentSource(path, f.deps.Extractor)
	if err != nil {
		return nil, err
	}
	return f.New(src), nil
}

// Video builds an orchestrator over a video transcript.
func (f *Factory) Video(videoID string) (*Orchestrator, error) {
	src, err := NewTranscriptSource(videoID, f.deps.Transcriber)
	if err != nil {
		return nil, err
	}
	return f.New(src), nil
}

// Table builds an orchestrator over a .csv or .xlsx passage table.
func (f *Factory) Table(path string) (*Orchestrator, error) {
	src, err := LoadTableSource(path, f.deps.Extractor)
	if err != nil {
		return nil, err
	}
	return f.New(src), nil
}

// Passages builds an orchestrator over caller-supplied passages.
func (f *Factory) Passages(passages []models.Passage) (*Orchestrator, error) {
	src, err := NewTableSource(passages)
	if err != nil {
		return nil, err
	}
	return f.New(src), nil
}

// New builds an orchestrator over any source.
func (f *Factory) New(src Source) *Orchestrator {
	opts := []Option{
		WithLogger(f.deps.Logger),
		WithAssembler(f.assembler),
		WithBuilder(f.builder),
	}
	if f.cfg.Storage.Save && f.deps.Store != nil {
		opts = append(opts, WithStore(f.deps.Store))
	}
	if f.cfg.Completion.Chat {
		opts = append(opts, WithChat(f.cfg.Completion.SystemPrompt))
	}
	return New(src, f.deps.Embedder, f.deps.Completer, opts...)
}
