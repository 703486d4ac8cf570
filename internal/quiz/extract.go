package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/abhisek/coursemate/internal/llm"
)

// Extraction is the outcome of parsing model output into quiz items.
// A failed extraction has no items and a Reason; it is never an error.
type Extraction struct {
	Items  []Item
	Raw    string
	Reason string
}

// OK reports whether items were extracted.
func (e Extraction) OK() bool {
	return e.Reason == ""
}

// Extract parses raw model output with the default validator chain.
func Extract(raw string) Extraction {
	return ExtractWith(raw, DefaultValidators())
}

// ExtractWith parses raw model output:
//
//  1. take the span from the first '[' to the last ']';
//  2. parse it as JSON and check it against ItemsSchema;
//  3. decode the items keeping option order, normalise labels and run
//     validators on every item.
//
// Any failure yields an empty quiz with raw and the reason.
func ExtractWith(raw string, validators []Validator) Extraction {
	fail := func(format string, args ...any) Extraction {
		return Extraction{Items: []Item{}, Raw: raw, Reason: fmt.Sprintf(format, args...)}
	}

	span, ok := bracketSpan(raw)
	if !ok {
		return fail("no JSON array in model output")
	}

	var generic any
	if err := json.Unmarshal([]byte(span), &generic); err != nil {
		return fail("invalid JSON: %v", err)
	}
	if err := llm.ValidateJSON(ItemsSchema, generic, []byte(span)); err != nil {
		return fail("%v", err)
	}

	items, err := decodeItems([]byte(span))
	if err != nil {
		return fail("decode items: %v", err)
	}
	if len(items) == 0 {
		return fail("quiz contains no questions")
	}

	for i := range items {
		for _, v := range validators {
			if verr := v.Validate(&items[i]); verr != nil {
				verr.Index = i
				return fail("%v", verr)
			}
		}
	}

	return Extraction{Items: items, Raw: raw}
}

// bracketSpan returns the greedy span from the first '[' to the last ']'.
func bracketSpan(raw string) (string, bool) {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// rawItem mirrors one array element; options stay raw so their key order
// can be read from the token stream.
type rawItem struct {
	Question    string          `json:"question"`
	Options     json.RawMessage `json:"options"`
	Answer      string          `json:"answer"`
	Explanation string          `json:"explanation"`
}

func decodeItems(data []byte) ([]Item, error) {
	var raws []rawItem
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}

	items := make([]Item, len(raws))
	for i, r := range raws {
		opts, err := decodeOptions(r.Options)
		if err != nil {
			return nil, fmt.Errorf("item %d options: %w", i+1, err)
		}
		items[i] = Item{
			Question:    strings.TrimSpace(r.Question),
			Options:     opts,
			Answer:      normalizeLabel(r.Answer),
			Explanation: strings.TrimSpace(r.Explanation),
		}
	}
	return items, nil
}

// decodeOptions reads a JSON object of label to text in document order.
func decodeOptions(data json.RawMessage) ([]Option, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("options must be an object")
	}

	var opts []Option
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", keyTok)
		}

		var text string
		if err := dec.Decode(&text); err != nil {
			return nil, fmt.Errorf("option %q: %w", key, err)
		}
		opts = append(opts, Option{Label: normalizeLabel(key), Text: strings.TrimSpace(text)})
	}

	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return opts, nil
}
