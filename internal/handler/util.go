package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/guided-ai/interview-platform/internal/interview"
	"github.com/guided-ai/interview-platform/internal/prompt"
	"github.com/guided-ai/interview-platform/internal/provider"
	"github.com/guided-ai/interview-platform/internal/service"
	"github.com/guided-ai/interview-platform/internal/template"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, template.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrEmptyInput),
		errors.Is(err, interview.ErrInvalidTemplate),
		errors.Is(err, interview.ErrNotCollecting),
		errors.Is(err, prompt.ErrMissingVariable):
		return http.StatusBadRequest
	}

	switch provider.KindOf(err) {
	case provider.KindRateLimited:
		return http.StatusTooManyRequests
	case provider.KindUnavailable, provider.KindMalformedStream:
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// errorCode labels an error for SSE error events and JSON bodies.
func errorCode(err error) string {
	if kind := provider.KindOf(err); kind != "" {
		return string(kind)
	}
	switch {
	case errors.Is(err, service.ErrSessionBusy):
		return "session_busy"
	case errors.Is(err, service.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, prompt.ErrMissingVariable):
		return "missing_variable"
	case errors.Is(err, interview.ErrInvalidTemplate):
		return "invalid_template"
	}
	return "internal_error"
}
