package quiz

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Validator checks one extracted item. Implementations should be
// stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier, e.g. "structural", "labels".
	Name() string

	// Validate returns nil if the item passes.
	Validate(it *Item) *ValidationError
}

// ValidationError describes why an item failed validation.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Index     int    // 0-based item index
	Message   string // Human-readable description of the failure
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: item %d: %s", e.Validator, e.Index+1, e.Message)
}

// DefaultValidators is the standard chain, run in order.
func DefaultValidators() []Validator {
	return []Validator{
		&StructuralValidator{},
		&LabelValidator{},
		&AnswerValidator{},
	}
}

// StructuralValidator requires a question and exactly four options.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(it *Item) *ValidationError {
	if strings.TrimSpace(it.Question) == "" {
		return &ValidationError{Validator: v.Name(), Message: "question is empty"}
	}
	if len(it.Options) != len(Labels) {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("expected %d options, got %d", len(Labels), len(it.Options)),
		}
	}
	return nil
}

// LabelValidator requires the option labels to be exactly A, B, C and D.
type LabelValidator struct{}

func (v *LabelValidator) Name() string { return "labels" }

func (v *LabelValidator) Validate(it *Item) *ValidationError {
	seen := make(map[string]bool, len(it.Options))
	for _, o := range it.Options {
		if !lo.Contains(Labels, o.Label) {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("unexpected option label %q", o.Label)}
		}
		if seen[o.Label] {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("duplicate option label %q", o.Label)}
		}
		seen[o.Label] = true
	}
	for _, l := range Labels {
		if !seen[l] {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("missing option %s", l)}
		}
	}
	return nil
}

// AnswerValidator requires the answer to name one of the options.
type AnswerValidator struct{}

func (v *AnswerValidator) Name() string { return "answer" }

func (v *AnswerValidator) Validate(it *Item) *ValidationError {
	if _, ok := it.OptionText(it.Answer); !ok {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("answer %q is not an option label", it.Answer)}
	}
	return nil
}

// normalizeLabel trims and upper-cases a label or answer key.
func normalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
