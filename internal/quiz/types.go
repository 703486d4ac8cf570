// Package quiz generates multiple-choice quizzes from document material
// and validates the model's output.
package quiz

import (
	"bytes"
	"encoding/json"
)

// Labels are the option labels every item must carry, in display order.
var Labels = []string{"A", "B", "C", "D"}

// Option is one answer choice.
type Option struct {
	Label string
	Text  string
}

// Item is one multiple-choice question. Options keep the order in which
// the model emitted them.
type Item struct {
	Question    string
	Options     []Option
	Answer      string
	Explanation string
}

// OptionText returns the text of the option with label.
func (it Item) OptionText(label string) (string, bool) {
	for _, o := range it.Options {
		if o.Label == label {
			return o.Text, true
		}
	}
	return "", false
}

// MarshalJSON writes options as an object in display order.
func (it Item) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`{"question":`)
	if err := writeJSON(&b, it.Question); err != nil {
		return nil, err
	}
	b.WriteString(`,"options":{`)
	for i, o := range it.Options {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeJSON(&b, o.Label); err != nil {
			return nil, err
		}
		b.WriteByte(':')
		if err := writeJSON(&b, o.Text); err != nil {
			return nil, err
		}
	}
	b.WriteString(`},"answer":`)
	if err := writeJSON(&b, it.Answer); err != nil {
		return nil, err
	}
	b.WriteString(`,"explanation":`)
	if err := writeJSON(&b, it.Explanation); err != nil {
		return nil, err
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func writeJSON(b *bytes.Buffer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.Write(data)
	return nil
}

// Result is the outcome of one quiz generation.
type Result struct {
	DocumentID string

	// Items is empty, never nil, when generation failed validation.
	Items []Item

	// Raw is the model output of the final attempt.
	Raw string

	// Reason explains why Items is empty. Empty on success.
	Reason string

	// NoContent is set when the document has no chunks. The provider is
	// not called.
	NoContent bool

	// Attempts is how many generations were requested.
	Attempts int

	// Prompt is the ID of the template used.
	Prompt string
}

// OK reports whether the result carries a validated quiz.
func (r *Result) OK() bool {
	return !r.NoContent && r.Reason == ""
}
