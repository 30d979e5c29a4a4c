// Package provider translates conversation history into requests against an
// external completion provider and normalizes responses, streams and failures.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/guided-ai/interview-platform/internal/model"
)

// Options carries recognized per-call configuration. Zero values fall back to
// provider defaults.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Completion is the normalized result of a completion call.
type Completion struct {
	Content      string
	Model        string
	TokensUsed   int
	LatencyMs    int64
	FinishReason string
}

// Client is the interface for completion providers. Neither method retries
// automatically; retry policy belongs to the caller.
type Client interface {
	// CompleteOnce performs a single blocking round trip.
	CompleteOnce(ctx context.Context, history []model.ChatMessage, opts Options) (*Completion, error)

	// CompleteStream starts a streaming completion and returns its event
	// stream. The stream is single-consumer and not restartable.
	CompleteStream(ctx context.Context, history []model.ChatMessage, opts Options) (*Stream, error)

	// Name returns the provider name.
	Name() string

	// Models returns the models this provider advertises.
	Models() []string
}

// Kind classifies a provider failure.
type Kind string

const (
	// KindRateLimited maps HTTP 429 responses.
	KindRateLimited Kind = "rate_limited"
	// KindUnavailable maps network failures and HTTP 5xx responses.
	KindUnavailable Kind = "unavailable"
	// KindMalformedStream maps unparsable streaming payloads.
	KindMalformedStream Kind = "malformed_stream"
)

// Error is a classified provider failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or an empty Kind for non-provider
// errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func rateLimited(msg string, err error) *Error {
	return &Error{Kind: KindRateLimited, Msg: msg, Err: err}
}

func unavailable(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Msg: msg, Err: err}
}

func malformed(msg string, err error) *Error {
	return &Error{Kind: KindMalformedStream, Msg: msg, Err: err}
}
