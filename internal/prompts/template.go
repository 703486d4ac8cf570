// Package prompts holds the versioned prompt templates sent to the model.
package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

// Template is a named, versioned prompt. Required lists the data keys
// Render insists on; any other key the template references must also be
// present or execution fails.
type Template struct {
	Name     string
	Version  int
	Required []string

	tmpl *template.Template
}

// New parses text into a Template. It panics on a parse error, so
// templates are declared as package variables.
func New(name string, version int, required []string, text string) *Template {
	t := template.Must(template.New(name).Option("missingkey=error").Parse(strings.TrimLeft(text, "\n")))
	return &Template{Name: name, Version: version, Required: required, tmpl: t}
}

// ID returns "name@vN". It is recorded alongside generations.
func (t *Template) ID() string {
	return fmt.Sprintf("%s@v%d", t.Name, t.Version)
}

// Render executes the template with data.
func (t *Template) Render(data map[string]any) (string, error) {
	for _, key := range t.Required {
		v, ok := data[key]
		if !ok || v == nil {
			return "", fmt.Errorf("prompt %s: missing required field %q", t.ID(), key)
		}
	}

	var b strings.Builder
	if err := t.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("prompt %s: %w", t.ID(), err)
	}
	return b.String(), nil
}

// BulletList renders items as "- item" lines, or fallback when empty.
func BulletList(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
