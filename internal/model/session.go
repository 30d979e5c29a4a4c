package model

import (
	"encoding/json"
	"time"
)

// InterviewPhase is the coarse state of a session's guided interview.
type InterviewPhase string

const (
	// PhaseInactive means no template is driving the session (free chat).
	PhaseInactive InterviewPhase = "inactive"
	// PhaseCollecting means the session is awaiting the answer for the
	// variable at Cursor.
	PhaseCollecting InterviewPhase = "collecting"
	// PhaseComplete means every variable has been collected; the next input
	// routes straight to the completion provider.
	PhaseComplete InterviewPhase = "complete"
)

// Question is one interview prompt emitted by the state machine.
type Question struct {
	VariableName string       `json:"variable_name"`
	Prompt       string       `json:"prompt"`
	Type         VariableType `json:"type"`
	Options      []string     `json:"options,omitempty"`
	Required     bool         `json:"required"`
	Default      string       `json:"default,omitempty"`
	Index        int          `json:"index"`
	Total        int          `json:"total"`
}

// Session is one ongoing conversation instance, template-bound or free-form.
// The interview state machine owns Cursor and Answers; the transcript
// manager owns Messages. All other fields are set at creation.
type Session struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	UserID     string         `json:"user_id"`
	Title      string         `json:"title"`
	TemplateID string         `json:"template_id,omitempty"`
	Phase      InterviewPhase `json:"phase"`
	Cursor     int            `json:"cursor"`
	Answers    AnswerSet      `json:"answers"`
	Messages   []Message      `json:"messages"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Version    int64          `json:"version"`
}

// SessionInfo is the list/summary view of a session.
type SessionInfo struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	TemplateID   string         `json:"template_id,omitempty"`
	Phase        InterviewPhase `json:"phase"`
	MessageCount int            `json:"message_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Info returns the summary view of the session.
func (s *Session) Info() *SessionInfo {
	return &SessionInfo{
		ID:           s.ID,
		Title:        s.Title,
		TemplateID:   s.TemplateID,
		Phase:        s.Phase,
		MessageCount: len(s.Messages),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// CreateSessionRequest is the request to start a conversation. TemplateID is
// optional; empty means free chat.
type CreateSessionRequest struct {
	Title      string `json:"title,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

// CreateSessionResponse returns the new session and, for template-bound
// sessions with variables, the first interview question.
type CreateSessionResponse struct {
	Session  *SessionInfo `json:"session"`
	Question *Question    `json:"question,omitempty"`
}

// ListSessionsResponse is the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Total    int           `json:"total"`
}

// AnswerSet is an ordered name→value mapping of collected interview answers.
// Insertion order follows interview order.
type AnswerSet struct {
	entries []answerEntry
}

type answerEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Set records or overwrites an answer, preserving first-insertion order.
func (a *AnswerSet) Set(name, value string) {
	for i := range a.entries {
		if a.entries[i].Name == name {
			a.entries[i].Value = value
			return
		}
	}
	a.entries = append(a.entries, answerEntry{Name: name, Value: value})
}

// Get returns the answer for name and whether it was collected.
func (a AnswerSet) Get(name string) (string, bool) {
	for _, e := range a.entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

// Len returns the number of collected answers.
func (a AnswerSet) Len() int { return len(a.entries) }

// Names returns the collected variable names in interview order.
func (a AnswerSet) Names() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.Name
	}
	return names
}

// Clear discards all collected answers.
func (a *AnswerSet) Clear() { a.entries = nil }

// Clone returns an independent copy of the set.
func (a AnswerSet) Clone() AnswerSet {
	return AnswerSet{entries: append([]answerEntry(nil), a.entries...)}
}

// MarshalJSON encodes the set as an ordered array of name/value pairs.
func (a AnswerSet) MarshalJSON() ([]byte, error) {
	if a.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.entries)
}

// UnmarshalJSON decodes the ordered array form.
func (a *AnswerSet) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &a.entries)
}
