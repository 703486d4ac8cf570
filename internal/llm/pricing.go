package llm

import "strings"

// ModelCost holds per-million-token pricing for a model in USD.
// Local models are listed at zero so stats can total a mixed history.
type ModelCost struct {
	InputPerMTok  float64 // USD per 1M input tokens
	OutputPerMTok float64 // USD per 1M output tokens
}

// Cost calculates the total USD cost for the given token counts.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model ID, or nil if unknown.
// Ollama tags ("llama3:8b", "mistral:latest") fall back to their family name.
func LookupCost(modelID string) *ModelCost {
	if c, ok := modelCosts[modelID]; ok {
		return &c
	}
	if family, _, ok := strings.Cut(modelID, ":"); ok {
		if c, ok := modelCosts[family]; ok {
			return &c
		}
	}
	return nil
}

// modelCosts covers the configurable defaults and their close relatives
// (models.dev, 2026-02-15). Unknown models show as "-" in usage reports.
var modelCosts = map[string]ModelCost{
	// Local (Ollama)
	"llama3":            {0, 0},
	"llama3.1":          {0, 0},
	"llama3.2":          {0, 0},
	"mistral":           {0, 0},
	"qwen2.5":           {0, 0},
	"nomic-embed-text":  {0, 0},
	"mxbai-embed-large": {0, 0},

	// Embeddings
	"text-embedding-3-small": {0.02, 0},
	"text-embedding-3-large": {0.13, 0},
	"text-embedding-004":     {0, 0},
	"gemini-embedding-001":   {0.15, 0},

	// Anthropic
	"claude-haiku-4-5-20251001":  {1, 5},
	"claude-sonnet-4-20250514":   {3, 15},
	"claude-sonnet-4-5-20250929": {3, 15},

	// OpenAI
	"gpt-4o":       {2.5, 10},
	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-4.1-mini": {0.4, 1.6},
	"gpt-5-mini":   {0.25, 2},

	// Google (Gemini)
	"gemini-2.0-flash":      {0.1, 0.4},
	"gemini-2.0-flash-lite": {0.075, 0.3},
	"gemini-2.0-pro":        {1.25, 10},
	"gemini-2.5-flash":      {0.3, 2.5},
}
