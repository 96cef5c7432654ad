package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Matching MatchingConfig `mapstructure:"matching"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes"`
}

// LLMConfig selects the embedding, judge and extraction models
type LLMConfig struct {
	Provider          string  `mapstructure:"provider"`      // "openai" or "ollama"
	ChatProvider      string  `mapstructure:"chat_provider"` // empty means Provider
	APIKey            string  `mapstructure:"api_key"`
	AnthropicAPIKey   string  `mapstructure:"anthropic_api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	OllamaHost        string  `mapstructure:"ollama_host"`
	EmbeddingModel    string  `mapstructure:"embedding_model"`
	JudgeModel        string  `mapstructure:"judge_model"`
	ExtractionModel   string  `mapstructure:"extraction_model"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// MatchingConfig tunes candidate scoring
type MatchingConfig struct {
	MinConfidenceThreshold float64 `mapstructure:"min_confidence_threshold"`
	MaxCandidates          int     `mapstructure:"max_candidates"`
	MaxConcurrency         int     `mapstructure:"max_concurrency"`
	EnableDebugLogging     bool    `mapstructure:"enable_debug_logging"`
}

// LoggingConfig holds log level and optional JSON log file
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/edge-engine/")

	// EDGE_LLM_API_KEY -> llm.api_key
	v.SetEnvPrefix("EDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default,
// even an empty one, so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.max_body_bytes", 1<<20)

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.chat_provider", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.ollama_host", "http://localhost:11434")
	v.SetDefault("llm.embedding_model", "openai/text-embedding-3-small")
	v.SetDefault("llm.judge_model", "google/gemini-flash-1.5")
	v.SetDefault("llm.extraction_model", "google/gemini-2.5-flash-lite")
	v.SetDefault("llm.requests_per_second", 5)
	v.SetDefault("llm.burst", 10)

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 50000)

	// Matching defaults
	v.SetDefault("matching.min_confidence_threshold", 0.5)
	v.SetDefault("matching.max_candidates", 10)
	v.SetDefault("matching.max_concurrency", 4)
	v.SetDefault("matching.enable_debug_logging", false)

	// Logging defaults
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.file", "")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("llm provider must be 'openai' or 'ollama', got: %s", config.LLM.Provider)
	}

	chat := config.LLM.ChatProvider
	switch chat {
	case "", "openai", "ollama", "anthropic":
	default:
		return fmt.Errorf("llm chat provider must be 'openai', 'ollama' or 'anthropic', got: %s", chat)
	}
	if chat == "" {
		chat = config.LLM.Provider
	}

	if (config.LLM.Provider == "openai" || chat == "openai") && config.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required (set EDGE_LLM_API_KEY)")
	}
	if chat == "anthropic" && config.LLM.AnthropicAPIKey == "" {
		return fmt.Errorf("Anthropic API key is required (set EDGE_LLM_ANTHROPIC_API_KEY)")
	}

	if t := config.Matching.MinConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("matching threshold must be within [0, 1], got: %v", t)
	}
	if config.Matching.MaxCandidates <= 0 {
		return fmt.Errorf("matching max candidates must be positive, got: %d", config.Matching.MaxCandidates)
	}

	if _, err := ParseLevel(config.Logging.Level); err != nil {
		return err
	}

	return nil
}

// loadEnvFile loads ./.env without overriding variables that are already
// set. A missing file is not an error.
func loadEnvFile() error {
	if err := gotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
