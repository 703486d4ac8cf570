package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaProvider implements Provider against a local Ollama server
// through langchaingo.
type OllamaProvider struct {
	llm   *ollama.LLM
	model string
}

// NewOllamaProvider creates a provider for the configured Ollama chat model.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}
	client, err := newOllamaClient(cfg.ServerURL, cfg.Model)
	if err != nil {
		return nil, err
	}
	return &OllamaProvider{llm: client, model: cfg.Model}, nil
}

func newOllamaClient(serverURL, model string) (*ollama.LLM, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create Ollama client: %w", err)
	}
	return client, nil
}

func (p *OllamaProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}

	result, err := p.llm.GenerateContent(ctx, buildOllamaMessages(req), opts...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ErrProviderUnavailable{Err: err}
	}
	if len(result.Choices) == 0 || result.Choices[0].Content == "" {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("no content in Ollama response")}
	}

	choice := result.Choices[0]
	usage := Usage{
		InputTokens:  generationInt(choice.GenerationInfo, "PromptTokens"),
		OutputTokens: generationInt(choice.GenerationInfo, "CompletionTokens"),
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	stop := "end"
	if choice.StopReason == "length" {
		stop = "max_tokens"
	}

	return &Response{
		Content:    json.RawMessage(choice.Content),
		Usage:      usage,
		Model:      p.model,
		StopReason: stop,
	}, nil
}

func (p *OllamaProvider) ModelID() string {
	return p.model
}

func buildOllamaMessages(req Request) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, m := range req.Messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}
	return msgs
}

// generationInt reads a token count from langchaingo generation info,
// which carries untyped values.
func generationInt(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// OllamaEmbedder implements Embedder with an Ollama embedding model
// (nomic-embed-text by default).
type OllamaEmbedder struct {
	embedder embeddings.Embedder
	model    string
}

// NewOllamaEmbedder creates an embedder for the given Ollama model.
func NewOllamaEmbedder(cfg OllamaConfig, model string) (*OllamaEmbedder, error) {
	client, err := newOllamaClient(cfg.ServerURL, model)
	if err != nil {
		return nil, err
	}
	emb, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create Ollama embedder: %w", err)
	}
	return &OllamaEmbedder{embedder: emb, model: model}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, &ErrProviderUnavailable{Err: err}
	}
	return vec, nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, &ErrProviderUnavailable{Err: err}
	}
	if len(vecs) != len(texts) {
		return nil, &ErrEmbeddingMismatch{Want: len(texts), Got: len(vecs)}
	}
	return vecs, nil
}

func (e *OllamaEmbedder) ModelID() string {
	return e.model
}
