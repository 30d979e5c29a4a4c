// Package model defines data structures for the guided conversation platform.
package model

import (
	"fmt"
	"regexp"
	"time"
)

// VariableType classifies how a template variable is collected.
type VariableType string

const (
	VariableTypeText     VariableType = "text"
	VariableTypeTextArea VariableType = "textarea"
	VariableTypeSelect   VariableType = "select"
)

// Variable is one named input slot inside a template, resolved through one
// interview turn.
type Variable struct {
	Name        string       `json:"name" yaml:"name"`
	Label       string       `json:"label,omitempty" yaml:"label,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Type        VariableType `json:"type" yaml:"type"`
	// Options are advisory hints for select variables; any free-text answer
	// is still accepted.
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
	Required bool     `json:"required" yaml:"required"`
	Default  string   `json:"default,omitempty" yaml:"default,omitempty"`
}

// Template is a reusable prompt definition with typed variable slots. The
// variable order defines the interview order.
type Template struct {
	ID            string     `json:"id" yaml:"id"`
	Name          string     `json:"name" yaml:"name"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`
	Category      string     `json:"category,omitempty" yaml:"category,omitempty"`
	SystemPrompt  string     `json:"system_prompt" yaml:"system_prompt"`
	Variables     []Variable `json:"variables" yaml:"variables"`
	ExampleInput  string     `json:"example_input,omitempty" yaml:"example_input,omitempty"`
	ExampleOutput string     `json:"example_output,omitempty" yaml:"example_output,omitempty"`
	UsageCount    int        `json:"usage_count,omitempty" yaml:"-"`
	CreatedAt     time.Time  `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// placeholderPattern matches {name} slots inside a system prompt.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Placeholders returns the distinct placeholder names appearing in the
// template's system prompt, in order of first appearance.
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(t.SystemPrompt, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Validate checks the template invariants: every placeholder in the system
// prompt must correspond to a declared variable, and variable names must be
// unique within the template.
func (t *Template) Validate() error {
	byName := make(map[string]bool, len(t.Variables))
	for _, v := range t.Variables {
		if v.Name == "" {
			return fmt.Errorf("template %q: variable with empty name", t.Name)
		}
		if byName[v.Name] {
			return fmt.Errorf("template %q: duplicate variable %q", t.Name, v.Name)
		}
		byName[v.Name] = true
	}
	for _, name := range t.Placeholders() {
		if !byName[name] {
			return fmt.Errorf("template %q: placeholder {%s} has no matching variable", t.Name, name)
		}
	}
	return nil
}

// Variable returns the declared variable with the given name, or nil.
func (t *Template) Variable(name string) *Variable {
	for i := range t.Variables {
		if t.Variables[i].Name == name {
			return &t.Variables[i]
		}
	}
	return nil
}

// CreateTemplateRequest is the request to register a new template.
type CreateTemplateRequest struct {
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Category      string     `json:"category,omitempty"`
	SystemPrompt  string     `json:"system_prompt"`
	Variables     []Variable `json:"variables"`
	ExampleInput  string     `json:"example_input,omitempty"`
	ExampleOutput string     `json:"example_output,omitempty"`
}

// ListTemplatesResponse is the response for listing templates.
type ListTemplatesResponse struct {
	Templates []Template `json:"templates"`
	Total     int        `json:"total"`
}
