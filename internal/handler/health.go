package handler

import (
	"net/http"

	"github.com/guided-ai/interview-platform/internal/audit"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	auditClient *audit.Client
}

// NewHealthHandler creates a new health handler. auditClient may be nil when
// the audit stream is disabled.
func NewHealthHandler(auditClient *audit.Client) *HealthHandler {
	return &HealthHandler{
		auditClient: auditClient,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.auditClient != nil && !h.auditClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "audit stream not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
