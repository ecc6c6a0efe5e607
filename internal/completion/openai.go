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

// OpenAIConfig configures the OpenAI completer. Model is used for single-shot prompts,
// ChatModel for chat histories.
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	ChatModel string
	Timeout   time.Duration
	Defaults  Options
}

// OpenAICompleter calls the OpenAI /completions and /chat/completions endpoints.
type OpenAICompleter struct {
	baseURL   string
	apiKey    string
	chatModel string
	defaults  Options
	client    *http.Client
	logger    *zap.Logger
}

// NewOpenAICompleter creates an OpenAI completer.
func NewOpenAICompleter(cfg OpenAIConfig, logger *zap.Logger) *OpenAICompleter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo-instruct"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-3.5-turbo"
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
	return &OpenAICompleter{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		chatModel: cfg.ChatModel,
		defaults:  cfg.Defaults,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Complete sends prompt to /completions and returns the trimmed text of the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, options ...Option) (string, error) {
	o := resolve(c.defaults, options)
	var resp completionResponse
	err := postJSON(ctx, c.client, c.baseURL+"/completions", c.apiKey, completionRequest{
		Model:       o.Model,
		Prompt:      prompt,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty choices in response")
	}
	c.logger.Debug("Completion received", zap.String("model", o.Model))
	return strings.TrimSpace(resp.Choices[0].Text), nil
}

// Chat sends history to /chat/completions and returns the assistant reply.
func (c *OpenAICompleter) Chat(ctx context.Context, history []models.Message, options ...Option) (string, error) {
	defaults := c.defaults
	defaults.Model = c.chatModel
	o := resolve(defaults, options)
	var resp chatResponse
	if err := postJSON(ctx, c.client, c.baseURL+"/chat/completions", c.apiKey, newChatRequest(o, history), &resp); err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	content, err := resp.content()
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	c.logger.Debug("Chat reply received", zap.String("model", o.Model), zap.Int("messages", len(history)))
	return strings.TrimSpace(content), nil
}

func newChatRequest(o Options, history []models.Message) chatRequest {
	msgs := make([]chatMessage, len(history))
	for i, m := range history {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	return chatRequest{
		Model:       o.Model,
		Messages:    msgs,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	}
}
