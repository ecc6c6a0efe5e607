// Package completion sends prompts and chat histories to a text-generation back-end.
package completion

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/models"
)

// Completer generates text from a single prompt or from a chat history.
type Completer interface {
	Complete(ctx context.Context, prompt string, options ...Option) (string, error)
	Chat(ctx context.Context, history []models.Message, options ...Option) (string, error)
}

// Options are per-call generation parameters.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Option overrides one generation parameter.
type Option func(*Options)

// WithMaxTokens caps the generated length.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func resolve(defaults Options, options []Option) Options {
	o := defaults
	for _, opt := range options {
		opt(&o)
	}
	return o
}

// New builds the completer selected by cfg.Backend ("openai" or "hf").
func New(cfg config.CompletionConfig, logger *zap.Logger) (Completer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := Options{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}
	switch cfg.Backend {
	case "openai":
		key := os.Getenv(cfg.OpenAI.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%w: missing API key in env %s", models.ErrConfiguration, cfg.OpenAI.APIKeyEnv)
		}
		return NewOpenAICompleter(OpenAIConfig{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKey:    key,
			Model:     cfg.OpenAI.Model,
			ChatModel: cfg.OpenAI.ChatModel,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			Defaults:  defaults,
		}, logger), nil
	case "hf":
		key := os.Getenv(cfg.HuggingFace.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%w: missing API key in env %s", models.ErrConfiguration, cfg.HuggingFace.APIKeyEnv)
		}
		return NewHuggingFaceCompleter(HuggingFaceConfig{
			BaseURL:  cfg.HuggingFace.BaseURL,
			APIKey:   key,
			Model:    cfg.HuggingFace.Model,
			Timeout:  time.Duration(cfg.HuggingFace.TimeoutSecs) * time.Second,
			Defaults: defaults,
		}, logger), nil
	}
	return nil, fmt.Errorf("%w: completion backend %q is not supported, choose one of [hf openai]",
		models.ErrConfiguration, cfg.Backend)
}
