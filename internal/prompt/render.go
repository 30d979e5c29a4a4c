// Package prompt renders collected interview answers into the final
// instruction payload.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/guided-ai/interview-platform/internal/model"
)

// ErrMissingVariable is returned when a placeholder survives substitution
// with no collected value and no default. The unrendered template must never
// reach the completion provider.
var ErrMissingVariable = errors.New("missing variable")

// Render substitutes collected answers into the template's system prompt.
// For each variable in template order, every literal {name} occurrence is
// replaced with the collected value, falling back to the variable's default
// when no value was collected. Render is pure: the same inputs always produce
// the same output and session state is untouched.
func Render(t *model.Template, answers model.AnswerSet) (string, error) {
	rendered := t.SystemPrompt
	for _, v := range t.Variables {
		value, ok := answers.Get(v.Name)
		if !ok {
			if v.Default == "" {
				continue
			}
			value = v.Default
		}
		rendered = strings.ReplaceAll(rendered, "{"+v.Name+"}", value)
	}

	if leftover := (&model.Template{SystemPrompt: rendered}).Placeholders(); len(leftover) > 0 {
		return "", fmt.Errorf("%w: {%s}", ErrMissingVariable, strings.Join(leftover, "}, {"))
	}
	return rendered, nil
}
