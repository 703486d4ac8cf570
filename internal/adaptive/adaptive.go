// Package adaptive generates quizzes that target the questions a student
// recently got wrong.
package adaptive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/prompts"
	"github.com/abhisek/coursemate/internal/quiz"
	"github.com/abhisek/coursemate/internal/store"
)

// Defaults for adaptive generation.
const (
	DefaultMissedSample = 5
	DefaultMaterialCap  = 30
)

// Config controls the Engine.
type Config struct {
	// MissedSample is how many of the most recent wrong answers are fed to
	// the prompt.
	MissedSample int

	// MaterialCap is how many leading chunks form the quiz material.
	MaterialCap int
}

// DefaultConfig returns the standard adaptive settings.
func DefaultConfig() Config {
	return Config{MissedSample: DefaultMissedSample, MaterialCap: DefaultMaterialCap}
}

// Repeat is a generated question that closely matches a missed one.
type Repeat struct {
	Question string
	Missed   string
}

// Result is an adaptive quiz.
type Result struct {
	*quiz.Result
	StudentID string

	// Missed is the sample of wrong questions sent to the model, most
	// recent first.
	Missed []string

	// Repeats lists generated questions that restate a missed question.
	// They are kept in the quiz; the list is informational.
	Repeats []Repeat
}

// Engine builds adaptive quizzes from the attempt log.
type Engine struct {
	attempts  store.AttemptRepo
	generator *quiz.Generator
	config    Config
	logger    *slog.Logger
}

// New creates an Engine.
func New(attempts store.AttemptRepo, generator *quiz.Generator, cfg Config, logger *slog.Logger) *Engine {
	if cfg.MissedSample <= 0 {
		cfg.MissedSample = DefaultMissedSample
	}
	if cfg.MaterialCap <= 0 {
		cfg.MaterialCap = DefaultMaterialCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{attempts: attempts, generator: generator, config: cfg, logger: logger}
}

// Generate creates n questions for studentID on documentID, focused on the
// student's recent misses.
func (e *Engine) Generate(ctx context.Context, studentID, documentID string, n int) (*Result, error) {
	missed, err := e.attempts.RecentWrong(ctx, studentID, documentID, e.config.MissedSample)
	if err != nil {
		return nil, fmt.Errorf("load recent wrong answers: %w", err)
	}

	qr, err := e.generator.GenerateWith(ctx, quiz.Input{
		DocumentID:  documentID,
		Count:       n,
		Template:    prompts.AdaptiveQuiz,
		Data:        map[string]any{"missed": prompts.BulletList(missed, prompts.NoPreviousWrong)},
		MaterialCap: e.config.MaterialCap,
		Purpose:     llm.PurposeAdaptiveQuiz,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Result: qr, StudentID: studentID, Missed: missed}
	if qr.OK() {
		res.Repeats = DetectRepeats(qr.Items, missed)
		if len(res.Repeats) > 0 {
			e.logger.Info("adaptive quiz repeats missed questions",
				"student_id", studentID,
				"file_id", documentID,
				"repeats", len(res.Repeats),
			)
		}
	}
	return res, nil
}

// DetectRepeats reports items whose question fuzzily matches one of missed.
func DetectRepeats(items []quiz.Item, missed []string) []Repeat {
	var out []Repeat
	for _, it := range items {
		for _, m := range missed {
			if similar(it.Question, m) {
				out = append(out, Repeat{Question: it.Question, Missed: m})
				break
			}
		}
	}
	return out
}

// similar reports whether a and b differ by only a few edits. The shorter
// string must be a subsequence of the longer (case and accents folded).
func similar(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if strings.EqualFold(a, b) {
		return true
	}

	short, long := a, b
	if utf8.RuneCountInString(short) > utf8.RuneCountInString(long) {
		short, long = long, short
	}
	dist := fuzzy.RankMatchNormalizedFold(short, long)
	if dist < 0 {
		return false
	}
	return dist <= max(3, utf8.RuneCountInString(long)/10)
}
