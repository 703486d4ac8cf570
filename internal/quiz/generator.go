package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/samber/lo"

	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/prompts"
	"github.com/abhisek/coursemate/internal/vectorindex"
)

// Input describes one generation. Generate fills it for a plain quiz;
// the adaptive engine supplies its own template and data.
type Input struct {
	DocumentID string

	// Count is the requested number of questions; normalised by Config.Count.
	Count int

	// Template renders the prompt. It receives Data plus "count" and
	// "material". Defaults to prompts.Quiz.
	Template *prompts.Template

	// Data holds extra template fields.
	Data map[string]any

	// MaterialCap overrides Config.MaterialCap when positive.
	MaterialCap int

	// Purpose labels the LLM request. Defaults to llm.PurposeQuiz.
	Purpose string
}

// Generator produces quizzes from indexed document material.
type Generator struct {
	index    vectorindex.Index
	provider llm.Provider
	config   Config
	logger   *slog.Logger
}

// New creates a Generator. Unset validators, material cap and token
// budget take their defaults.
func New(index vectorindex.Index, provider llm.Provider, cfg Config, logger *slog.Logger) *Generator {
	def := DefaultConfig()
	if len(cfg.Validators) == 0 {
		cfg.Validators = def.Validators
	}
	if cfg.MaterialCap <= 0 {
		cfg.MaterialCap = def.MaterialCap
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{index: index, provider: provider, config: cfg, logger: logger}
}

// Config returns the generator's configuration.
func (g *Generator) Config() Config {
	return g.config
}

// Generate creates a quiz of n questions from documentID.
func (g *Generator) Generate(ctx context.Context, documentID string, n int) (*Result, error) {
	return g.GenerateWith(ctx, Input{DocumentID: documentID, Count: n})
}

// GenerateWith runs one generation. Malformed output is reported in the
// Result; only provider and storage failures are returned as errors.
func (g *Generator) GenerateWith(ctx context.Context, in Input) (*Result, error) {
	tmpl := in.Template
	if tmpl == nil {
		tmpl = prompts.Quiz
	}
	purpose := in.Purpose
	if purpose == "" {
		purpose = llm.PurposeQuiz
	}
	limit := in.MaterialCap
	if limit <= 0 {
		limit = g.config.MaterialCap
	}

	res := &Result{DocumentID: in.DocumentID, Items: []Item{}, Prompt: tmpl.ID()}

	material, err := Material(ctx, g.index, in.DocumentID, limit)
	if err != nil {
		return nil, err
	}
	if material == "" {
		res.NoContent = true
		return res, nil
	}

	data := make(map[string]any, len(in.Data)+2)
	maps.Copy(data, in.Data)
	data["count"] = g.config.Count(in.Count)
	data["material"] = material

	prompt, err := tmpl.Render(data)
	if err != nil {
		return nil, err
	}

	ctx = llm.WithPurpose(ctx, purpose)
	req := llm.UserPrompt(prompt, g.config.MaxTokens, g.config.Temperature)

	for attempt := 1; attempt <= g.config.attempts(); attempt++ {
		res.Attempts = attempt

		resp, err := g.provider.Generate(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("generate quiz: %w", err)
		}

		ex := ExtractWith(resp.Text(), g.config.Validators)
		res.Raw = ex.Raw
		if ex.OK() {
			res.Items = ex.Items
			res.Reason = ""
			return res, nil
		}

		res.Reason = ex.Reason
		g.logger.Warn("quiz output rejected",
			"file_id", in.DocumentID,
			"attempt", attempt,
			"reason", ex.Reason,
		)
	}

	return res, nil
}

// Material joins the first limit chunks of documentID with blank lines.
// It returns "" when the document has no chunks.
func Material(ctx context.Context, index vectorindex.Index, documentID string, limit int) (string, error) {
	chunks, err := index.GetAll(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("load material: %w", err)
	}
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}

	texts := lo.Map(chunks, func(c vectorindex.Chunk, _ int) string { return c.Text })
	return strings.Join(texts, "\n\n"), nil
}
