// Package grounding answers questions strictly from retrieved document
// context.
package grounding

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/prompts"
	"github.com/abhisek/coursemate/internal/retrieval"
)

// Mode tells how an answer was produced.
type Mode string

const (
	// ModeNoContext means the document had no chunks and the fallback
	// answer was returned without calling the model.
	ModeNoContext Mode = "no-context"

	// ModeGrounded means the model answered from the assembled context.
	ModeGrounded Mode = "grounded"
)

// Answer is the result of one question.
type Answer struct {
	DocumentID string
	Question   string
	Mode       Mode
	Text       string

	// ChunksUsed lists the chunks supplied to the model.
	ChunksUsed []retrieval.Labeled

	// Citations are the chunk labels the model claims to have used, parsed
	// from "(Used: Chunk n, ...)". Labels outside the working set are dropped.
	Citations []string
}

// Synthesizer combines an Assembler and a Provider.
type Synthesizer struct {
	assembler *retrieval.Assembler
	provider  llm.Provider
	logger    *slog.Logger

	MaxTokens   int
	Temperature float64
}

// New creates a Synthesizer.
func New(assembler *retrieval.Assembler, provider llm.Provider, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		assembler: assembler,
		provider:  provider,
		logger:    logger,
		MaxTokens: 1024,
	}
}

// Ask answers question from documentID. With no indexed chunks it returns
// prompts.NotFoundAnswer and never calls the provider.
func (s *Synthesizer) Ask(ctx context.Context, documentID, question string) (*Answer, error) {
	rc, err := s.assembler.Assemble(ctx, documentID, question)
	if err != nil {
		return nil, err
	}

	ans := &Answer{DocumentID: documentID, Question: question}
	if rc.Empty() {
		ans.Mode = ModeNoContext
		ans.Text = prompts.NotFoundAnswer
		ans.ChunksUsed = []retrieval.Labeled{}
		return ans, nil
	}

	prompt, err := prompts.GroundedAnswer.Render(map[string]any{
		"context":  rc.Rendered,
		"question": question,
	})
	if err != nil {
		return nil, err
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeAsk)
	resp, err := s.provider.Generate(ctx, llm.UserPrompt(prompt, s.MaxTokens, s.Temperature))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	ans.Mode = ModeGrounded
	ans.Text = strings.TrimSpace(resp.Text())
	ans.ChunksUsed = rc.Chunks
	ans.Citations = ParseCitations(ans.Text, len(rc.Chunks))

	s.logger.Debug("grounded answer",
		"file_id", documentID,
		"candidates", rc.Candidates,
		"citations", len(ans.Citations),
	)
	return ans, nil
}

var (
	usedRe  = regexp.MustCompile(`(?i)\(\s*used\s*:([^)]*)\)`)
	chunkRe = regexp.MustCompile(`(?i)chunk\s*(\d+)`)
)

// ParseCitations extracts "Chunk n" labels from every "(Used: ...)" group
// in text, in order of first mention. Labels above limit are dropped.
func ParseCitations(text string, limit int) []string {
	var out []string
	seen := map[int]bool{}
	for _, group := range usedRe.FindAllStringSubmatch(text, -1) {
		for _, m := range chunkRe.FindAllStringSubmatch(group[1], -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > limit || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, fmt.Sprintf("Chunk %d", n))
		}
	}
	return out
}
