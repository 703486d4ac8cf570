package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Name: "test-answer-key",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{"type": "string", "minLength": 1},
				"answer":   map[string]any{"type": "string", "enum": []any{"A", "B", "C", "D"}},
			},
			"required": []any{"question", "answer"},
		},
	}
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return v
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"question":"Q?","answer":"B"}`, false},
		{"missing required", `{"question":"Q?"}`, true},
		{"enum violation", `{"question":"Q?","answer":"E"}`, true},
		{"wrong type", `{"question":3,"answer":"A"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON(testSchema(), decode(t, tt.raw), []byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateJSON error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var inv *ErrInvalidResponse
				if !errors.As(err, &inv) {
					t.Fatalf("expected ErrInvalidResponse, got %T", err)
				}
				if string(inv.Content) != tt.raw {
					t.Fatalf("raw content not preserved: %s", inv.Content)
				}
			}
		})
	}
}

func TestValidateJSON_NilSchema(t *testing.T) {
	if err := ValidateJSON(nil, "anything", nil); err != nil {
		t.Fatalf("nil schema should pass, got %v", err)
	}
}

func TestValidateJSON_CachesCompiledSchema(t *testing.T) {
	s := testSchema()
	s.Name = "cache-probe"
	if err := ValidateJSON(s, decode(t, `{"question":"a","answer":"A"}`), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := schemaCache.Load("cache-probe"); !ok {
		t.Fatal("expected compiled schema to be cached")
	}
}
