// Package retrieval selects the chunks that ground an answer and renders
// them as labelled context.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/coursemate/internal/vectorindex"
)

// Defaults for candidate retrieval.
const (
	DefaultCandidateCap = 25
	DefaultWorkingSet   = 10
)

// Config bounds how many chunks are retrieved and kept.
type Config struct {
	// CandidateCap is how many chunks are requested from the index.
	CandidateCap int

	// WorkingSet is how many of the ranked candidates are labelled and
	// rendered into the context.
	WorkingSet int
}

// DefaultConfig returns the standard retrieval limits.
func DefaultConfig() Config {
	return Config{CandidateCap: DefaultCandidateCap, WorkingSet: DefaultWorkingSet}
}

// Labeled is a selected chunk with its context label.
type Labeled struct {
	Label    string // "Chunk n", n 1-based within the working set
	Position int
	Score    float64
	Text     string
}

// Context is the assembled grounding context for one question.
type Context struct {
	DocumentID string
	Query      string
	Candidates int       // chunks returned by the index
	Chunks     []Labeled // the working set, in rank order
	Rendered   string    // "[Chunk n] text" blocks joined by blank lines
}

// Empty reports whether the index returned no candidates.
func (c *Context) Empty() bool {
	return c.Candidates == 0
}

// Label returns the chunk with the given label, if selected.
func (c *Context) Label(label string) (Labeled, bool) {
	for _, l := range c.Chunks {
		if l.Label == label {
			return l, true
		}
	}
	return Labeled{}, false
}

// Assembler builds Contexts from an index.
type Assembler struct {
	index  vectorindex.Index
	config Config
}

// New creates an Assembler. Non-positive limits fall back to the defaults.
func New(index vectorindex.Index, cfg Config) *Assembler {
	if cfg.CandidateCap <= 0 {
		cfg.CandidateCap = DefaultCandidateCap
	}
	if cfg.WorkingSet <= 0 {
		cfg.WorkingSet = DefaultWorkingSet
	}
	return &Assembler{index: index, config: cfg}
}

// Assemble retrieves candidates for query within documentID, keeps the
// first WorkingSet of them and renders the labelled context.
func (a *Assembler) Assemble(ctx context.Context, documentID, query string) (*Context, error) {
	results, err := a.index.Query(ctx, documentID, query, a.config.CandidateCap)
	if err != nil {
		return nil, fmt.Errorf("retrieve chunks: %w", err)
	}

	out := &Context{DocumentID: documentID, Query: query, Candidates: len(results)}

	selected := results
	if len(selected) > a.config.WorkingSet {
		selected = selected[:a.config.WorkingSet]
	}

	blocks := make([]string, len(selected))
	out.Chunks = make([]Labeled, len(selected))
	for i, r := range selected {
		label := fmt.Sprintf("Chunk %d", i+1)
		out.Chunks[i] = Labeled{Label: label, Position: r.Position, Score: r.Score, Text: r.Text}
		blocks[i] = fmt.Sprintf("[%s] %s", label, r.Text)
	}
	out.Rendered = strings.Join(blocks, "\n\n")

	return out, nil
}
