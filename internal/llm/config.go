package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds chat and embedding provider configuration.
type Config struct {
	// Provider selects which chat provider to use.
	// Values: "ollama", "anthropic", "openai", "gemini", "openrouter", "mock"
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
	Embedding  EmbeddingConfig
	Retry      RetryConfig

	// RequestsPerMinute caps outbound chat calls. Zero disables limiting.
	RequestsPerMinute int

	// Timeout bounds a single Generate call including retries. Default: 60s.
	Timeout time.Duration
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-haiku"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.0-flash-exp"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// OllamaConfig holds settings for a local Ollama server.
type OllamaConfig struct {
	ServerURL string // Default: "http://localhost:11434"
	Model     string // Default: "llama3:8b"
}

// EmbeddingConfig selects the embedding backend. Credentials are shared
// with the matching chat provider section.
type EmbeddingConfig struct {
	// Provider values: "ollama", "openai", "gemini", "mock"
	Provider string
	Model    string // Default depends on provider.
}

// RetryConfig configures retry behavior for transient failures.
// MaxAttempts of 1 disables retries.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

var defaultEmbeddingModels = map[string]string{
	"ollama": "nomic-embed-text",
	"openai": "text-embedding-3-small",
	"gemini": "text-embedding-004",
	"mock":   "mock-embed",
}

// DefaultConfig returns a Config targeting a local Ollama install.
func DefaultConfig() Config {
	return Config{
		Provider: "ollama",
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.0-flash-exp",
		},
		Ollama: OllamaConfig{
			ServerURL: "http://localhost:11434",
			Model:     "llama3:8b",
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 60 * time.Second,
	}
}

// EmbeddingModel returns the configured embedding model or the provider default.
func (c Config) EmbeddingModel() string {
	if c.Embedding.Model != "" {
		return c.Embedding.Model
	}
	return defaultEmbeddingModels[c.Embedding.Provider]
}

// ConfigFromEnv builds a Config from COURSEMATE_* environment variables,
// falling back to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	setString(&cfg.Provider, "COURSEMATE_LLM_PROVIDER")

	setString(&cfg.Anthropic.APIKey, "COURSEMATE_ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "COURSEMATE_ANTHROPIC_MODEL")

	setString(&cfg.OpenAI.APIKey, "COURSEMATE_OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "COURSEMATE_OPENAI_MODEL")
	setString(&cfg.OpenAI.BaseURL, "COURSEMATE_OPENAI_BASE_URL")

	setString(&cfg.Gemini.APIKey, "COURSEMATE_GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "COURSEMATE_GEMINI_MODEL")

	setString(&cfg.OpenRouter.APIKey, "COURSEMATE_OPENROUTER_API_KEY")
	setString(&cfg.OpenRouter.Model, "COURSEMATE_OPENROUTER_MODEL")

	setString(&cfg.Ollama.ServerURL, "COURSEMATE_OLLAMA_URL")
	setString(&cfg.Ollama.Model, "COURSEMATE_OLLAMA_MODEL")

	setString(&cfg.Embedding.Provider, "COURSEMATE_EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.Model, "COURSEMATE_EMBEDDING_MODEL")

	if v, err := strconv.Atoi(os.Getenv("COURSEMATE_LLM_MAX_ATTEMPTS")); err == nil && v > 0 {
		cfg.Retry.MaxAttempts = v
	}
	if v, err := strconv.Atoi(os.Getenv("COURSEMATE_LLM_RPM")); err == nil && v >= 0 {
		cfg.RequestsPerMinute = v
	}
	if d, err := time.ParseDuration(os.Getenv("COURSEMATE_LLM_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}

	return cfg
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DiscoverConfig probes standard API key env vars in priority order
// (Gemini → OpenAI → Anthropic → OpenRouter) and returns a Config for the
// first provider whose key is found. Returns (Config{}, false) if none found.
// Embeddings follow the chat provider where it offers them.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		cfg.Embedding.Provider = "gemini"
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		cfg.Embedding.Provider = "openai"
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// Validate checks that the selected providers have what they need.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("COURSEMATE_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("COURSEMATE_OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("COURSEMATE_GEMINI_API_KEY is required for the gemini provider")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("COURSEMATE_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case "ollama":
		if c.Ollama.ServerURL == "" {
			return fmt.Errorf("COURSEMATE_OLLAMA_URL is required for the ollama provider")
		}
	case "mock":
		// Nothing to check.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}

	switch c.Embedding.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("COURSEMATE_OPENAI_API_KEY is required for openai embeddings")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("COURSEMATE_GEMINI_API_KEY is required for gemini embeddings")
		}
	case "ollama":
		if c.Ollama.ServerURL == "" {
			return fmt.Errorf("COURSEMATE_OLLAMA_URL is required for ollama embeddings")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Embedding.Provider)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}
