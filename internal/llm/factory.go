package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// NewProvider creates a Provider from configuration, wrapped with rate
// limiting, retry and logging middleware.
func NewProvider(ctx context.Context, cfg Config, events EventRecorder, logger *slog.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "ollama":
		base, err = NewOllamaProvider(cfg.Ollama)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// caller → rate limit → retry → logging → base
	logged := WithLogging(base, cfg.Provider, events, logger)
	retried := WithRetry(logged, cfg.Retry)
	return WithRateLimit(retried, cfg.RequestsPerMinute), nil
}

// NewEmbedder creates the configured Embedder wrapped with retry.
func NewEmbedder(ctx context.Context, cfg Config) (Embedder, error) {
	model := cfg.EmbeddingModel()

	var base Embedder
	var err error

	switch cfg.Embedding.Provider {
	case "ollama":
		base, err = NewOllamaEmbedder(cfg.Ollama, model)
	case "openai":
		base, err = NewOpenAIEmbedder(cfg.OpenAI, model)
	case "gemini":
		base, err = NewGeminiEmbedder(ctx, cfg.Gemini, model)
	case "mock":
		base = NewMockEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s embedder: %w", cfg.Embedding.Provider, err)
	}

	return WithEmbedRetry(base, cfg.Retry), nil
}
