package llm

import (
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Supported providers
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Config selects providers and models. ChatProvider defaults to Provider;
// embeddings always use Provider since Anthropic has no embedding endpoint.
type Config struct {
	Provider        string
	ChatProvider    string
	APIKey          string
	AnthropicAPIKey string
	BaseURL         string
	OllamaHost      string
	EmbeddingModel  string
	JudgeModel      string
	ExtractionModel string
	Limits          Limits
}

// NewClient builds the embedder, judge and extractor models from cfg
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	embedClient, err := newEmbeddingClient(cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(embedClient)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	judge, err := newChatModel(cfg, cfg.JudgeModel)
	if err != nil {
		return nil, fmt.Errorf("create judge model: %w", err)
	}
	extractor, err := newChatModel(cfg, cfg.ExtractionModel)
	if err != nil {
		return nil, fmt.Errorf("create extraction model: %w", err)
	}

	return NewClientFromModels(Models{
		Embedder:  embedder,
		Judge:     judge,
		Extractor: extractor,
	}, cfg.Limits, logger), nil
}

func newEmbeddingClient(cfg Config) (embeddings.EmbedderClient, error) {
	switch cfg.Provider {
	case ProviderOllama:
		client, err := ollama.New(
			ollama.WithModel(cfg.EmbeddingModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return client, nil

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

func newChatModel(cfg Config, model string) (llms.Model, error) {
	provider := cfg.ChatProvider
	if provider == "" {
		provider = cfg.Provider
	}

	switch provider {
	case ProviderOllama:
		return ollama.New(
			ollama.WithModel(model),
			ollama.WithServerURL(cfg.OllamaHost),
		)

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)

	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		return anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(model),
		)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
