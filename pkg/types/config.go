// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ServerConfig holds settings for the HTTP layer.
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// RequestTimeout bounds one query end to end (default 30s).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`

	// AllowOrigin is the Access-Control-Allow-Origin value (default "*").
	AllowOrigin string `json:"allow_origin" yaml:"allow_origin" mapstructure:"allow_origin"`

	// RateLimitRPS is the per-client sustained request rate (default 10).
	RateLimitRPS float64 `json:"rate_limit_rps" yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`

	// RateLimitBurst is the per-client burst size (default 20).
	RateLimitBurst int `json:"rate_limit_burst" yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`

	// TrustProxy makes the rate limiter key clients by the last
	// X-Forwarded-For hop. Enable only behind a reverse proxy that sets it.
	TrustProxy bool `json:"trust_proxy" yaml:"trust_proxy" mapstructure:"trust_proxy"`

	// MaxQuestionLen caps the question length in characters (default 2000).
	MaxQuestionLen int `json:"max_question_len" yaml:"max_question_len" mapstructure:"max_question_len"`
}

// AIConfig holds shared settings for a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gpt-4", "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts on rate-limited calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ProviderConfig configures one model provider.
type ProviderConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL overrides the provider endpoint. Empty uses the public API.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// Provider names accepted in ModelConfig.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ModelConfig selects the primary model provider and its fallbacks.
type ModelConfig struct {
	// Provider is the primary provider: openai, anthropic, or gemini.
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Fallback lists providers tried in order when the primary fails.
	Fallback []string `json:"fallback" yaml:"fallback" mapstructure:"fallback"`

	// Temperature is the sampling temperature sent to every provider.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens caps the completion length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	OpenAI    ProviderConfig `json:"openai" yaml:"openai" mapstructure:"openai"`
	Anthropic ProviderConfig `json:"anthropic" yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    ProviderConfig `json:"gemini" yaml:"gemini" mapstructure:"gemini"`
}

// Cache backends accepted in CacheConfig.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig holds settings for the answer cache.
type CacheConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Backend is "memory" or "redis".
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// TTL is how long a cached answer stays valid (default 1h).
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// MaxEntries bounds the in-memory cache (default 1000).
	MaxEntries int `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`

	RedisAddr     string `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db" mapstructure:"redis_db"`
}

// ArchiveConfig holds settings for the SQLite answer archive.
type ArchiveConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Path is the SQLite database file (default "data/sciqa.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// MaxResults is the default search result limit (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "json" for production output or "console" for development.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// TrainingConfig holds settings for the few-shot training harness.
type TrainingConfig struct {
	// ProgramPath is where the trained example set is saved and loaded.
	ProgramPath string `json:"program_path" yaml:"program_path" mapstructure:"program_path"`

	// DataPath is the dataset file with train and validation splits.
	DataPath string `json:"data_path" yaml:"data_path" mapstructure:"data_path"`

	// MaxExamples caps the number of few-shot examples kept (default 10).
	MaxExamples int `json:"max_examples" yaml:"max_examples" mapstructure:"max_examples"`
}

// Config groups all service settings.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Model    ModelConfig    `json:"model" yaml:"model" mapstructure:"model"`
	Cache    CacheConfig    `json:"cache" yaml:"cache" mapstructure:"cache"`
	Archive  ArchiveConfig  `json:"archive" yaml:"archive" mapstructure:"archive"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
	Training TrainingConfig `json:"training" yaml:"training" mapstructure:"training"`
}

// DefaultConfig returns the configuration used when no file or
// environment override is present.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8000",
			RequestTimeout: 30 * time.Second,
			AllowOrigin:    "*",
			RateLimitRPS:   10,
			RateLimitBurst: 20,
			MaxQuestionLen: 2000,
		},
		Model: ModelConfig{
			Provider:    ProviderOpenAI,
			Fallback:    []string{ProviderAnthropic},
			Temperature: 0.2,
			MaxTokens:   2048,
			OpenAI:      ProviderConfig{AIConfig: AIConfig{Model: "gpt-4", MaxRetries: 3}},
			Anthropic:   ProviderConfig{AIConfig: AIConfig{Model: "claude-3-sonnet-20240229", MaxRetries: 3}},
			Gemini:      ProviderConfig{AIConfig: AIConfig{Model: "gemini-1.5-flash", MaxRetries: 3}},
		},
		Cache: CacheConfig{
			Enabled:    true,
			Backend:    CacheMemory,
			TTL:        time.Hour,
			MaxEntries: 1000,
			RedisAddr:  "localhost:6379",
		},
		Archive: ArchiveConfig{
			Path:       "data/sciqa.db",
			MaxResults: 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Training: TrainingConfig{
			ProgramPath: "models/trained_qa_program.yaml",
			DataPath:    "data/scientific_qa_dataset.yaml",
			MaxExamples: 10,
		},
	}
}
