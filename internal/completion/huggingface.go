package completion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/models"
)

// HuggingFaceConfig configures the Hugging Face router completer.
type HuggingFaceConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Defaults Options
}

// HuggingFaceCompleter calls the OpenAI-compatible chat endpoint of the Hugging Face router.
type HuggingFaceCompleter struct {
	baseURL  string
	apiKey   string
	defaults Options
	client   *http.Client
	logger   *zap.Logger
}

// NewHuggingFaceCompleter creates a Hugging Face completer.
func NewHuggingFaceCompleter(cfg HuggingFaceConfig, logger *zap.Logger) *HuggingFaceCompleter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://router.huggingface.co/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Defaults.MaxTokens == 0 {
		cfg.Defaults.MaxTokens = 300
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Defaults.Model = cfg.Model
	return &HuggingFaceCompleter{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		defaults: cfg.Defaults,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

// Chat sends history to /chat/completions.
func (c *HuggingFaceCompleter) Chat(ctx context.Context, history []models.Message, options ...Option) (string, error) {
	o := resolve(c.defaults, options)
	var resp chatResponse
	if err := postJSON(ctx, c.client, c.baseURL+"/chat/completions", c.apiKey, newChatRequest(o, history), &resp); err != nil {
		return "", fmt.Errorf("huggingface chat: %w", err)
	}
	content, err := resp.content()
	if err != nil {
		return "", fmt.Errorf("huggingface chat: %w", err)
	}
	c.logger.Debug("Chat reply received", zap.String("model", o.Model))
	return strings.TrimSpace(content), nil
}

// Complete wraps prompt into a single user message.
func (c *HuggingFaceCompleter) Complete(ctx context.Context, prompt string, options ...Option) (string, error) {
	return c.Chat(ctx, []models.Message{{Role: models.RoleUser, Content: prompt}}, options...)
}
