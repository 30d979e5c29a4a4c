// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TurnsTotal tracks routed conversation turns by outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Total routed conversation turns",
		},
		[]string{"tenant_id", "outcome"},
	)

	// InterviewsStarted tracks guided interviews started per template.
	InterviewsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviews_started_total",
			Help: "Guided interviews started",
		},
		[]string{"template"},
	)

	// InterviewsCompleted tracks guided interviews that reached rendering.
	InterviewsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviews_completed_total",
			Help: "Guided interviews completed",
		},
		[]string{"template"},
	)

	// CompletionDuration tracks completion provider call duration.
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "completion_duration_seconds",
			Help:    "Completion provider call duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "model", "status"},
	)

	// CompletionTokensTotal tracks tokens reported by the provider.
	CompletionTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_tokens_total",
			Help: "Tokens reported by the completion provider",
		},
		[]string{"provider", "model"},
	)

	// FallbackRepliesTotal tracks demo replies substituted after provider failure.
	FallbackRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_replies_total",
			Help: "Demo replies substituted after provider failure",
		},
		[]string{"reason"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// SessionsTotal tracks sessions created.
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_total",
			Help: "Total sessions created",
		},
		[]string{"tenant_id", "mode"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for one completion provider call.
func RecordCompletion(provider, model, status string, duration float64, tokens int) {
	CompletionDuration.WithLabelValues(provider, model, status).Observe(duration)
	if tokens > 0 {
		CompletionTokensTotal.WithLabelValues(provider, model).Add(float64(tokens))
	}
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
