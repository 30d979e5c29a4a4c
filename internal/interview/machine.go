// Package interview implements the variable collection state machine that
// drives a guided, one-question-at-a-time interview over a template's
// variables.
package interview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/guided-ai/interview-platform/internal/model"
)

var (
	// ErrInvalidTemplate is returned by Start when the template's
	// placeholders and variables do not line up.
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrAnswerRequired is returned by SubmitAnswer when a required variable
	// receives an empty answer. The machine does not advance; the same
	// question is re-emitted alongside the error.
	ErrAnswerRequired = errors.New("answer is required")

	// ErrNotCollecting is returned by SubmitAnswer outside the collecting
	// phase.
	ErrNotCollecting = errors.New("no question awaiting an answer")
)

// Machine walks a template's variables in declaration order, one question per
// turn. It owns the session's cursor and collected answers and nothing else.
type Machine struct {
	template *model.Template
	phase    model.InterviewPhase
	cursor   int
	answers  model.AnswerSet
}

// New returns an inactive machine.
func New() *Machine {
	return &Machine{phase: model.PhaseInactive}
}

// Start validates the template and begins the interview. A template without
// variables transitions directly to the complete phase and emits no question.
func (m *Machine) Start(t *model.Template) (*model.Question, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	m.template = t
	m.cursor = 0
	m.answers.Clear()

	if len(t.Variables) == 0 {
		m.phase = model.PhaseComplete
		return nil, nil
	}

	m.phase = model.PhaseCollecting
	return m.question(0), nil
}

// SubmitAnswer consumes the user's input as the answer for the current
// variable. Empty answers to required variables do not advance the cursor:
// the identical question is returned together with ErrAnswerRequired. An
// empty answer to an optional variable records the variable's default and
// advances. On acceptance the next question is returned, or nil once
// collection is complete.
func (m *Machine) SubmitAnswer(raw string) (*model.Question, error) {
	if m.phase != model.PhaseCollecting {
		return nil, ErrNotCollecting
	}

	v := m.template.Variables[m.cursor]
	answer := strings.TrimSpace(raw)
	if answer == "" {
		if v.Required {
			return m.question(m.cursor), ErrAnswerRequired
		}
		answer = v.Default
	}

	m.answers.Set(v.Name, answer)
	m.cursor++

	if m.cursor == len(m.template.Variables) {
		m.phase = model.PhaseComplete
		return nil, nil
	}
	return m.question(m.cursor), nil
}

// CurrentQuestion returns the question awaiting an answer, or nil.
func (m *Machine) CurrentQuestion() *model.Question {
	if m.phase != model.PhaseCollecting {
		return nil
	}
	return m.question(m.cursor)
}

// Active reports whether the machine is collecting answers.
func (m *Machine) Active() bool {
	return m.phase == model.PhaseCollecting
}

// Complete reports whether every variable has been collected.
func (m *Machine) Complete() bool {
	return m.phase == model.PhaseComplete
}

// Phase returns the current interview phase.
func (m *Machine) Phase() model.InterviewPhase {
	return m.phase
}

// Cursor returns the index of the variable awaiting an answer.
func (m *Machine) Cursor() int {
	return m.cursor
}

// Template returns the template driving the interview, or nil when inactive.
func (m *Machine) Template() *model.Template {
	return m.template
}

// Answers returns a copy of the collected answers in interview order.
func (m *Machine) Answers() model.AnswerSet {
	var out model.AnswerSet
	for _, name := range m.answers.Names() {
		v, _ := m.answers.Get(name)
		out.Set(name, v)
	}
	return out
}

// Reset cancels the interview from any state, discarding collected answers.
// Already-rendered prompts are unaffected.
func (m *Machine) Reset() {
	m.template = nil
	m.phase = model.PhaseInactive
	m.cursor = 0
	m.answers.Clear()
}

// Restore rebuilds machine state from a persisted session snapshot. The
// template must already have been validated when the snapshot was taken.
func (m *Machine) Restore(t *model.Template, phase model.InterviewPhase, cursor int, answers model.AnswerSet) error {
	if phase == model.PhaseInactive {
		m.Reset()
		return nil
	}
	if t == nil {
		return fmt.Errorf("%w: snapshot references a missing template", ErrInvalidTemplate)
	}
	if cursor < 0 || cursor > len(t.Variables) {
		return fmt.Errorf("%w: cursor %d out of range", ErrInvalidTemplate, cursor)
	}
	m.template = t
	m.phase = phase
	m.cursor = cursor
	m.answers = answers
	return nil
}

func (m *Machine) question(i int) *model.Question {
	v := m.template.Variables[i]
	prompt := v.Label
	if prompt == "" {
		prompt = v.Description
	}
	if prompt == "" {
		prompt = v.Name
	}
	return &model.Question{
		VariableName: v.Name,
		Prompt:       prompt,
		Type:         v.Type,
		Options:      v.Options,
		Required:     v.Required,
		Default:      v.Default,
		Index:        i,
		Total:        len(m.template.Variables),
	}
}
