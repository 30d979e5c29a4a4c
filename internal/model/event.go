package model

import (
	"time"
)

// AuditAction classifies an audit event.
type AuditAction string

const (
	AuditActionTurnCompleted AuditAction = "turn_completed"
	AuditActionProviderError AuditAction = "provider_error"
	AuditActionTemplateUsed  AuditAction = "template_used"
	AuditActionSessionReset  AuditAction = "session_reset"
)

// AuditEvent records one notable action for the audit stream.
type AuditEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	TenantID  string         `json:"tenant_id"`
	Action    AuditAction    `json:"action"`
	Reason    string         `json:"reason,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// DeltaEvent is one incremental chunk sent to SSE clients. TextSoFar carries
// the cumulative text, not just the increment.
type DeltaEvent struct {
	TextSoFar string `json:"text_so_far"`
	Index     int    `json:"index"`
}

// QuestionEvent wraps the next interview question for SSE clients.
type QuestionEvent struct {
	Question *Question `json:"question"`
}

// DoneEvent terminates a successful SSE turn.
type DoneEvent struct {
	Message *Message `json:"message"`
}

// ErrorEvent terminates a failed SSE turn.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
