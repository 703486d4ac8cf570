// Package summary condenses a document's leading material into a study
// summary.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/prompts"
	"github.com/abhisek/coursemate/internal/quiz"
	"github.com/abhisek/coursemate/internal/vectorindex"
)

// DefaultMaterialCap is how many leading chunks are summarised.
const DefaultMaterialCap = 30

// Result is a document summary.
type Result struct {
	DocumentID string
	Summary    string
	NoContent  bool
}

// Summarizer produces summaries through the provider.
type Summarizer struct {
	index    vectorindex.Index
	provider llm.Provider

	MaterialCap int
	MaxTokens   int
}

// New creates a Summarizer. A non-positive materialCap uses
// DefaultMaterialCap.
func New(index vectorindex.Index, provider llm.Provider, materialCap int) *Summarizer {
	if materialCap <= 0 {
		materialCap = DefaultMaterialCap
	}
	return &Summarizer{index: index, provider: provider, MaterialCap: materialCap, MaxTokens: 1024}
}

// Summarize summarises documentID. A document without chunks yields
// NoContent and no provider call.
func (s *Summarizer) Summarize(ctx context.Context, documentID string) (*Result, error) {
	material, err := quiz.Material(ctx, s.index, documentID, s.MaterialCap)
	if err != nil {
		return nil, err
	}
	if material == "" {
		return &Result{DocumentID: documentID, NoContent: true}, nil
	}

	prompt, err := prompts.Summary.Render(map[string]any{"material": material})
	if err != nil {
		return nil, err
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeSummary)
	resp, err := s.provider.Generate(ctx, llm.UserPrompt(prompt, s.MaxTokens, 0.2))
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	return &Result{DocumentID: documentID, Summary: strings.TrimSpace(resp.Text())}, nil
}
