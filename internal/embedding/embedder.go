// Package embedding turns text into unit-length vectors, either with a local ONNX
// sentence model or the hosted OpenAI embeddings endpoint.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/vector"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Backend names an embedding provider.
type Backend string

// Supported back-ends.
const (
	BackendHF     Backend = "hf"
	BackendOpenAI Backend = "openai"
)

// ParseBackend validates a back-end name.
func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case BackendHF, BackendOpenAI:
		return Backend(name), nil
	}
	return "", fmt.Errorf("%w: embedding extractor %q is not supported, choose one of [%s %s]",
		models.ErrConfiguration, name, BackendHF, BackendOpenAI)
}

type options struct {
	logger *zap.Logger
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New builds the embedder selected by cfg.Extractor. The back-end name is checked
// before any provider is constructed.
func New(cfg config.EmbeddingConfig, opts ...Option) (Embedder, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	backend, err := ParseBackend(cfg.Extractor)
	if err != nil {
		return nil, err
	}
	switch backend {
	case BackendOpenAI:
		e, err := NewOpenAIEmbedder(OpenAIConfigFrom(cfg.OpenAI), WithOpenAILogger(o.logger))
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		modelPath, ok := cfg.Models[cfg.ModelLang]
		if !ok || modelPath == "" {
			return nil, fmt.Errorf("%w: no embedding model configured for language %q", models.ErrConfiguration, cfg.ModelLang)
		}
		o.logger.Info("Loading embedding model",
			zap.String("lang", cfg.ModelLang),
			zap.String("path", modelPath))
		e, err := NewONNXEmbedder(ONNXConfig{
			ModelPath:  modelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
			CacheSize:  cfg.CacheSize,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

// EmbedPassages embeds every passage and returns the table keyed by passage ID,
// in passage order.
func EmbedPassages(ctx context.Context, e Embedder, passages []models.Passage) (*vector.Table, error) {
	texts := make([]string, len(passages))
	ids := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
		ids[i] = p.ID
	}
	vecs, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(passages) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d passages", len(vecs), len(passages))
	}
	table := vector.NewTable(e.Dimensions())
	if err := table.Add(ids, vecs); err != nil {
		return nil, err
	}
	return table, nil
}
