package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageStatus tracks the lifecycle of an assistant message. A streaming
// message flips to final exactly once, when its stream terminates.
type MessageStatus string

const (
	StatusFinal     MessageStatus = "final"
	StatusStreaming MessageStatus = "streaming"
)

// Message is one transcript turn. Messages are append-only; the only
// permitted mutation is completing an in-progress streaming assistant turn.
type Message struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Status    MessageStatus `json:"status,omitempty"`
	CreatedAt time.Time     `json:"created_at"`

	// Metadata is populated on assistant turns: provider model, token count,
	// latency, the template that produced the prompt, and the mandatory
	// demo marker on fallback replies.
	Metadata *MessageMetadata `json:"metadata,omitempty"`
}

// MessageMetadata carries provider and audit details for display.
type MessageMetadata struct {
	Model        string `json:"model,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	LatencyMs    int64  `json:"latency_ms,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	TemplateName string `json:"template_name,omitempty"`
	Demo         bool   `json:"demo,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ChatMessage is the provider wire form of a transcript turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SendInputRequest is the request body for routing user input into a session.
type SendInputRequest struct {
	Content     string  `json:"content"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// TurnResponse is the result of a non-streaming routed turn.
type TurnResponse struct {
	Session  *SessionInfo `json:"session"`
	Messages []Message    `json:"messages"`
	// Question is set while the guided interview is still collecting
	// answers; the client should display it and submit the next input.
	Question *Question `json:"question,omitempty"`
}

// ListMessagesResponse is the response for listing a session transcript.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}
