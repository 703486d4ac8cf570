package quiz

import "github.com/abhisek/coursemate/internal/llm"

// ItemsSchema is the JSON Schema for the array the quiz prompts ask for.
// Label names and the answer key are checked by the validator chain,
// which normalises case and whitespace first.
var ItemsSchema = &llm.Schema{
	Name:        "quiz-items",
	Description: "An array of multiple-choice questions",
	Definition: map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question text",
				},
				"options": map[string]any{
					"type":                 "object",
					"description":          "Exactly four options keyed A, B, C and D",
					"minProperties":        4,
					"maxProperties":        4,
					"additionalProperties": map[string]any{"type": "string"},
				},
				"answer": map[string]any{
					"type":        "string",
					"description": "Label of the correct option",
				},
				"explanation": map[string]any{
					"type":        "string",
					"description": "One-line explanation of the answer",
				},
			},
			"required": []string{"question", "options", "answer"},
		},
	},
}
