package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SessionIdleMins == 0 {
		cfg.Server.SessionIdleMins = 60
	}

	if cfg.Embedding.Extractor == "" {
		cfg.Embedding.Extractor = "hf"
	}
	if cfg.Embedding.ModelLang == "" {
		cfg.Embedding.ModelLang = "en"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Models == nil {
		cfg.Embedding.Models = map[string]string{
			"en": "/usr/local/var/tanya/models/all-MiniLM-L6-v2.onnx",
			"tr": "/usr/local/var/tanya/models/bert-base-turkish-cased-mean-nli-stsb-tr.onnx",
		}
	}
	if cfg.Embedding.OpenAI.BaseURL == "" {
		cfg.Embedding.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.OpenAI.APIKeyEnv == "" {
		cfg.Embedding.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.OpenAI.Model == "" {
		cfg.Embedding.OpenAI.Model = "text-embedding-ada-002"
	}
	if cfg.Embedding.OpenAI.TimeoutSecs == 0 {
		cfg.Embedding.OpenAI.TimeoutSecs = 60
	}
	if cfg.Embedding.OpenAI.BatchSize == 0 {
		cfg.Embedding.OpenAI.BatchSize = 100
	}

	if cfg.Completion.Backend == "" {
		cfg.Completion.Backend = cfg.Embedding.Extractor
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 300
	}
	if cfg.Completion.SystemPrompt == "" {
		cfg.Completion.SystemPrompt = "you are a helpful assistant"
	}
	if cfg.Completion.OpenAI.BaseURL == "" {
		cfg.Completion.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Completion.OpenAI.APIKeyEnv == "" {
		cfg.Completion.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Completion.OpenAI.Model == "" {
		cfg.Completion.OpenAI.Model = "gpt-3.5-turbo-instruct"
	}
	if cfg.Completion.OpenAI.ChatModel == "" {
		cfg.Completion.OpenAI.ChatModel = "gpt-3.5-turbo"
	}
	if cfg.Completion.OpenAI.TimeoutSecs == 0 {
		cfg.Completion.OpenAI.TimeoutSecs = 120
	}
	if cfg.Completion.HuggingFace.BaseURL == "" {
		cfg.Completion.HuggingFace.BaseURL = "https://router.huggingface.co/v1"
	}
	if cfg.Completion.HuggingFace.APIKeyEnv == "" {
		cfg.Completion.HuggingFace.APIKeyEnv = "HF_TOKEN"
	}
	if cfg.Completion.HuggingFace.Model == "" {
		cfg.Completion.HuggingFace.Model = "meta-llama/Llama-3.1-8B-Instruct"
	}
	if cfg.Completion.HuggingFace.TimeoutSecs == 0 {
		cfg.Completion.HuggingFace.TimeoutSecs = 120
	}

	if cfg.Prompt.MaxTokens == 0 {
		cfg.Prompt.MaxTokens = 1000
	}
	if cfg.Prompt.Separator == "" {
		cfg.Prompt.Separator = "\n* "
	}
	if cfg.Prompt.Tokenizer == "" {
		cfg.Prompt.Tokenizer = "words"
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/tanya/data/tanya.db"
	}
	if cfg.Storage.Mongo.URI == "" {
		cfg.Storage.Mongo.URI = "mongodb://localhost:27017"
	}
	if cfg.Storage.Mongo.Database == "" {
		cfg.Storage.Mongo.Database = "tanya"
	}

	if cfg.Transcript.AudioDir == "" {
		cfg.Transcript.AudioDir = "/usr/local/var/tanya/audio"
	}
	if cfg.Transcript.Model == "" {
		cfg.Transcript.Model = "whisper-1"
	}
	if cfg.Transcript.PassageTokens == 0 {
		cfg.Transcript.PassageTokens = 200
	}
	if cfg.Transcript.BaseURL == "" {
		cfg.Transcript.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Transcript.APIKeyEnv == "" {
		cfg.Transcript.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Transcript.TimeoutSecs == 0 {
		cfg.Transcript.TimeoutSecs = 300
	}
}
