// Package config provides configuration loading and structs for tanya.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/tanya/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	LogFile    string           `yaml:"log_file"`
	Server     ServerConfig     `yaml:"server"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Storage    StorageConfig    `yaml:"storage"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

// ServerConfig holds HTTP server settings.
// SessionIdleMins evicts API sessions unused for that many minutes; a negative value keeps them forever.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	SessionIdleMins int    `yaml:"session_idle_mins"`
}

// EmbeddingConfig selects and configures the embedding back-end.
// Extractor is "hf" (local ONNX model chosen by ModelLang) or "openai".
// CacheSize defaults to 10000 when unset; a negative value disables the cache.
type EmbeddingConfig struct {
	Extractor  string            `yaml:"extractor"`
	ModelLang  string            `yaml:"model_lang"`
	Dimensions int               `yaml:"dimensions"`
	MaxTokens  int               `yaml:"max_tokens"`
	CacheSize  int               `yaml:"cache_size"`
	Models     map[string]string `yaml:"models"`
	OpenAI     OpenAIEmbedding   `yaml:"openai"`
}

// OpenAIEmbedding holds settings for the hosted embeddings endpoint.
type OpenAIEmbedding struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// CompletionConfig selects and configures the completion back-end.
type CompletionConfig struct {
	Backend      string           `yaml:"backend"`
	Chat         bool             `yaml:"chat"`
	MaxTokens    int              `yaml:"max_tokens"`
	Temperature  float64          `yaml:"temperature"`
	SystemPrompt string           `yaml:"system_prompt"`
	OpenAI       OpenAICompletion `yaml:"openai"`
	HuggingFace  HFCompletion     `yaml:"huggingface"`
}

// OpenAICompletion holds settings for the OpenAI completion and chat endpoints.
type OpenAICompletion struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	ChatModel   string `yaml:"chat_model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// HFCompletion holds settings for the Hugging Face router.
type HFCompletion struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PromptConfig holds context assembly settings. MaxTokens is the default per-query budget.
type PromptConfig struct {
	MaxTokens int    `yaml:"max_tokens"`
	Separator string `yaml:"separator"`
	Header    string `yaml:"header"`
	Tokenizer string `yaml:"tokenizer"`
}

// StorageConfig holds persistence settings. Driver is "sqlite" or "mongo".
type StorageConfig struct {
	Save         bool        `yaml:"save"`
	Driver       string      `yaml:"driver"`
	DatabasePath string      `yaml:"database_path"`
	Mongo        MongoConfig `yaml:"mongo"`
}

// MongoConfig holds the MongoDB connection settings.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// TranscriptConfig holds settings for transcribing video audio.
type TranscriptConfig struct {
	AudioDir      string `yaml:"audio_dir"`
	Model         string `yaml:"model"`
	PassageTokens int    `yaml:"passage_tokens"`
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Transcript.AudioDir = expandPath(cfg.Transcript.AudioDir, configDir)
	if cfg.LogFile != "" {
		cfg.LogFile = expandPath(cfg.LogFile, configDir)
	}
	for lang, p := range cfg.Embedding.Models {
		cfg.Embedding.Models[lang] = expandPath(p, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks back-end names and numeric limits. Failures wrap models.ErrConfiguration.
func (c *Config) Validate() error {
	switch c.Embedding.Extractor {
	case "hf", "openai":
	default:
		return fmt.Errorf("%w: embedding extractor %q, choose one of [hf openai]", models.ErrConfiguration, c.Embedding.Extractor)
	}
	switch c.Completion.Backend {
	case "hf", "openai":
	default:
		return fmt.Errorf("%w: completion backend %q, choose one of [hf openai]", models.ErrConfiguration, c.Completion.Backend)
	}
	switch c.Storage.Driver {
	case "sqlite", "mongo":
	default:
		return fmt.Errorf("%w: storage driver %q, choose one of [sqlite mongo]", models.ErrConfiguration, c.Storage.Driver)
	}
	if c.Prompt.MaxTokens <= 0 {
		return fmt.Errorf("%w: prompt.max_tokens must be positive", models.ErrConfiguration)
	}
	if c.Completion.MaxTokens <= 0 {
		return fmt.Errorf("%w: completion.max_tokens must be positive", models.ErrConfiguration)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
