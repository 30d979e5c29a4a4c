package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-ai/interview-platform/internal/model"
)

func TestRender(t *testing.T) {
	tmpl := &model.Template{
		Name:         "letter",
		SystemPrompt: "Write to {recipient} in a {tone} voice",
		Variables: []model.Variable{
			{Name: "recipient", Type: model.VariableTypeText, Required: true},
			{Name: "tone", Type: model.VariableTypeText, Default: "polite"},
		},
	}

	t.Run("substitutes collected values with default fallback", func(t *testing.T) {
		var answers model.AnswerSet
		answers.Set("recipient", "Alice")

		out, err := Render(tmpl, answers)
		require.NoError(t, err)
		assert.Equal(t, "Write to Alice in a polite voice", out)
	})

	t.Run("is idempotent", func(t *testing.T) {
		var answers model.AnswerSet
		answers.Set("recipient", "Alice")
		answers.Set("tone", "firm")

		first, err := Render(tmpl, answers)
		require.NoError(t, err)
		second, err := Render(tmpl, answers)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("replaces every occurrence of a placeholder", func(t *testing.T) {
		repeated := &model.Template{
			SystemPrompt: "{name} is {name}",
			Variables:    []model.Variable{{Name: "name", Type: model.VariableTypeText}},
		}
		var answers model.AnswerSet
		answers.Set("name", "Bob")

		out, err := Render(repeated, answers)
		require.NoError(t, err)
		assert.Equal(t, "Bob is Bob", out)
	})

	t.Run("fails when a placeholder survives with no default", func(t *testing.T) {
		var answers model.AnswerSet
		answers.Set("tone", "firm")

		_, err := Render(tmpl, answers)
		assert.ErrorIs(t, err, ErrMissingVariable)
		assert.Contains(t, err.Error(), "recipient")
	})

	t.Run("no variables passes the prompt through", func(t *testing.T) {
		plain := &model.Template{SystemPrompt: "You are helpful."}
		out, err := Render(plain, model.AnswerSet{})
		require.NoError(t, err)
		assert.Equal(t, "You are helpful.", out)
	})

	t.Run("answer text containing braces is not re-expanded", func(t *testing.T) {
		var answers model.AnswerSet
		answers.Set("recipient", "Alice")
		answers.Set("tone", "curly {brace}")

		_, err := Render(tmpl, answers)
		// The substituted value reintroduced placeholder syntax; surfacing the
		// leftover beats sending template syntax to the provider.
		assert.ErrorIs(t, err, ErrMissingVariable)
	})
}
