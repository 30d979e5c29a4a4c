package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/guided-ai/interview-platform/internal/middleware"
	"github.com/guided-ai/interview-platform/internal/model"
	"github.com/guided-ai/interview-platform/internal/service"
	"github.com/guided-ai/interview-platform/pkg/logger"
	"github.com/guided-ai/interview-platform/pkg/metrics"
)

// StreamHandler handles the SSE streaming turn endpoint.
type StreamHandler struct {
	turns  *service.TurnService
	logger *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(turns *service.TurnService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		turns:  turns,
		logger: log,
	}
}

// sseSink forwards turn events to the SSE response. Send failures abandon the
// turn; a disconnected client is detected through the request context.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	done    <-chan struct{}
}

func (s *sseSink) send(event string, data interface{}) error {
	select {
	case <-s.done:
		return fmt.Errorf("client disconnected")
	default:
	}
	return sendSSEEvent(s.w, s.flusher, event, data)
}

func (s *sseSink) Question(q *model.Question) error {
	return s.send("question", &model.QuestionEvent{Question: q})
}

func (s *sseSink) Delta(textSoFar string, index int) error {
	return s.send("delta", &model.DeltaEvent{TextSoFar: textSoFar, Index: index})
}

func (s *sseSink) Done(msg *model.Message) error {
	return s.send("done", &model.DoneEvent{Message: msg})
}

// StreamInput handles POST /api/v1/sessions/{id}/stream
// Routes one user turn and streams the reply as SSE events: zero or more
// cumulative delta events, then exactly one done or error event. Interview
// turns emit a question event before done.
func (h *StreamHandler) StreamInput(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateInputContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sink := &sseSink{w: w, flusher: flusher, done: ctx.Done()}

	if err := h.turns.RouteInputStream(ctx, tenantID, sessionID, &req, sink); err != nil {
		h.logger.Warn("streaming turn failed",
			zap.String("session_id", sessionID),
			zap.String("code", errorCode(err)),
			zap.Error(err))
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    errorCode(err),
			Message: err.Error(),
		})
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
