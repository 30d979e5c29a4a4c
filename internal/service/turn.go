package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guided-ai/interview-platform/internal/audit"
	"github.com/guided-ai/interview-platform/internal/interview"
	"github.com/guided-ai/interview-platform/internal/model"
	"github.com/guided-ai/interview-platform/internal/prompt"
	"github.com/guided-ai/interview-platform/internal/provider"
	"github.com/guided-ai/interview-platform/pkg/logger"
	"github.com/guided-ai/interview-platform/pkg/metrics"
)

// ErrEmptyInput is returned when a free-chat turn carries no content. During
// an interview empty input is legal and handled by the state machine.
var ErrEmptyInput = errors.New("input content is required")

// maxTitleLen bounds the auto-generated session title.
const maxTitleLen = 50

// StreamSink receives turn events as they are produced. Any error returned
// from a callback abandons the turn.
type StreamSink interface {
	Question(q *model.Question) error
	Delta(textSoFar string, index int) error
	Done(msg *model.Message) error
}

// TurnService routes user input through the guided interview, renders the
// final prompt and invokes the completion provider. Turns within one session
// run strictly one at a time.
type TurnService struct {
	sessions *SessionService
	provider provider.Client
	fallback provider.Client
	audit    *audit.Publisher
	logger   *logger.Logger

	historyWindow int
	defaults      provider.Options
}

// NewTurnService creates a new turn service. A nil fallback disables the
// synthetic-reply substitution on provider failure.
func NewTurnService(sessions *SessionService, p provider.Client, fallback provider.Client,
	pub *audit.Publisher, log *logger.Logger, historyWindow int, defaults provider.Options) *TurnService {
	if historyWindow <= 0 {
		historyWindow = 20
	}
	return &TurnService{
		sessions:      sessions,
		provider:      p,
		fallback:      fallback,
		audit:         pub,
		logger:        log,
		historyWindow: historyWindow,
		defaults:      defaults,
	}
}

// turnState accumulates the messages produced by one routed turn.
type turnState struct {
	messages  []model.Message
	question  *model.Question
	completed bool // interview finished on this turn
}

// RouteInput processes one user turn end to end and blocks until the
// assistant reply is final. While the interview is collecting, the reply is
// the next question; afterwards it is a provider completion.
func (t *TurnService) RouteInput(ctx context.Context, tenantID, sessionID string, req *model.SendInputRequest) (*model.TurnResponse, error) {
	rt, err := t.sessions.BeginTurn(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	defer t.sessions.EndTurn(rt)

	turn, err := t.advance(rt, req.Content)
	if err != nil {
		return nil, err
	}

	if turn.question != nil {
		t.sessions.Persist(ctx, rt)
		metrics.TurnsTotal.WithLabelValues(tenantID, "interview").Inc()
		return t.response(rt, turn), nil
	}

	history, opts, tmplName, err := t.prepare(rt, req)
	if err != nil {
		t.sessions.Persist(ctx, rt)
		return nil, err
	}

	comp, md, err := t.completeOnce(ctx, history, opts, tmplName, sessionID, tenantID)
	if err != nil {
		t.sessions.Persist(ctx, rt)
		metrics.TurnsTotal.WithLabelValues(tenantID, "error").Inc()
		return nil, err
	}

	msg := newMessage(sessionID, model.RoleAssistant, comp.Content, model.StatusFinal, md)
	rt.mu.Lock()
	rt.Session.Messages = append(rt.Session.Messages, *msg)
	rt.Session.UpdatedAt = time.Now()
	rt.mu.Unlock()
	turn.messages = append(turn.messages, *msg)

	t.finishTurn(ctx, rt, tenantID, turn, tmplName, md)
	return t.response(rt, turn), nil
}

// RouteInputStream is the streaming variant of RouteInput. Interview turns
// emit a question event; completion turns emit cumulative delta events while
// the in-transcript assistant message is updated in place, then flipped to
// final on the terminal event. A partial assistant turn whose stream fails
// without fallback is discarded wholesale.
func (t *TurnService) RouteInputStream(ctx context.Context, tenantID, sessionID string, req *model.SendInputRequest, sink StreamSink) error {
	rt, err := t.sessions.BeginTurn(ctx, tenantID, sessionID)
	if err != nil {
		return err
	}
	defer t.sessions.EndTurn(rt)

	turn, err := t.advance(rt, req.Content)
	if err != nil {
		return err
	}

	if turn.question != nil {
		t.sessions.Persist(ctx, rt)
		metrics.TurnsTotal.WithLabelValues(tenantID, "interview").Inc()
		if err := sink.Question(turn.question); err != nil {
			return err
		}
		last := turn.messages[len(turn.messages)-1]
		return sink.Done(&last)
	}

	history, opts, tmplName, err := t.prepare(rt, req)
	if err != nil {
		t.sessions.Persist(ctx, rt)
		return err
	}

	// The streaming assistant turn lives in the transcript while it grows.
	streaming := newMessage(sessionID, model.RoleAssistant, "", model.StatusStreaming,
		&model.MessageMetadata{TemplateName: tmplName})
	rt.mu.Lock()
	rt.Session.Messages = append(rt.Session.Messages, *streaming)
	idx := len(rt.Session.Messages) - 1
	rt.mu.Unlock()

	comp, md, err := t.completeStream(ctx, rt, idx, history, opts, tmplName, sessionID, tenantID, sink)
	if err != nil {
		rt.mu.Lock()
		rt.Session.Messages = rt.Session.Messages[:idx]
		rt.mu.Unlock()
		t.sessions.Persist(ctx, rt)
		metrics.TurnsTotal.WithLabelValues(tenantID, "error").Inc()
		return err
	}

	rt.mu.Lock()
	rt.Session.Messages[idx].Content = comp.Content
	rt.Session.Messages[idx].Status = model.StatusFinal
	rt.Session.Messages[idx].Metadata = md
	rt.Session.UpdatedAt = time.Now()
	final := rt.Session.Messages[idx]
	rt.mu.Unlock()
	turn.messages = append(turn.messages, final)

	t.finishTurn(ctx, rt, tenantID, turn, tmplName, md)
	return sink.Done(&final)
}

// advance appends the user turn and, when the interview is collecting, feeds
// the input to the state machine. It returns the new transcript messages and
// the next question, if any.
func (t *TurnService) advance(rt *Runtime, content string) (*turnState, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if strings.TrimSpace(content) == "" && !rt.Machine.Active() {
		return nil, ErrEmptyInput
	}

	turn := &turnState{}
	sessID := rt.Session.ID

	userMsg := newMessage(sessID, model.RoleUser, content, model.StatusFinal, nil)
	rt.Session.Messages = append(rt.Session.Messages, *userMsg)
	turn.messages = append(turn.messages, *userMsg)

	if rt.Session.Title == "" {
		rt.Session.Title = titleFromInput(content)
	}

	if rt.Machine.Active() {
		tmplName := rt.Machine.Template().Name
		q, err := rt.Machine.SubmitAnswer(content)
		if err != nil && !errors.Is(err, interview.ErrAnswerRequired) {
			return nil, err
		}
		if q != nil {
			// Next question, or the same one re-emitted after an empty
			// required answer.
			qMsg := newMessage(sessID, model.RoleAssistant, q.Prompt, model.StatusFinal,
				&model.MessageMetadata{TemplateName: tmplName})
			rt.Session.Messages = append(rt.Session.Messages, *qMsg)
			turn.messages = append(turn.messages, *qMsg)
			turn.question = q
		} else {
			turn.completed = true
		}
	}

	rt.syncState()
	rt.Session.UpdatedAt = time.Now()
	return turn, nil
}

// prepare builds the provider history for a completion turn: the rendered
// template prompt as a system turn, if a completed interview is driving the
// session, followed by the trailing window of the transcript.
func (t *TurnService) prepare(rt *Runtime, req *model.SendInputRequest) ([]model.ChatMessage, provider.Options, string, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var history []model.ChatMessage
	var tmplName string

	if tmpl := rt.Machine.Template(); tmpl != nil && rt.Machine.Complete() {
		answers := rt.Machine.Answers()
		rendered, err := prompt.Render(tmpl, answers)
		if err != nil {
			return nil, provider.Options{}, "", err
		}
		tmplName = tmpl.Name
		history = append(history, model.ChatMessage{Role: string(model.RoleSystem), Content: rendered})
	}

	var window []model.ChatMessage
	for _, m := range rt.Session.Messages {
		if m.Status == model.StatusStreaming {
			continue
		}
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		window = append(window, model.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	if len(window) > t.historyWindow {
		window = window[len(window)-t.historyWindow:]
	}
	history = append(history, window...)

	return history, t.options(req), tmplName, nil
}

// options merges per-turn overrides onto configured defaults.
func (t *TurnService) options(req *model.SendInputRequest) provider.Options {
	opts := t.defaults
	if req.Model != "" {
		opts.Model = req.Model
	}
	if req.Temperature > 0 {
		opts.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		opts.MaxTokens = req.MaxTokens
	}
	return opts
}

// completeOnce invokes the provider and, on classified failure, substitutes
// the synthetic fallback reply when enabled. The returned metadata carries
// the mandatory demo marker on fallback replies.
func (t *TurnService) completeOnce(ctx context.Context, history []model.ChatMessage, opts provider.Options, tmplName, sessionID, tenantID string) (*provider.Completion, *model.MessageMetadata, error) {
	start := time.Now()
	comp, err := t.provider.CompleteOnce(ctx, history, opts)
	if err == nil {
		metrics.RecordCompletion(t.provider.Name(), comp.Model, "ok", time.Since(start).Seconds(), comp.TokensUsed)
		return comp, t.metadata(comp, tmplName, "", false), nil
	}

	kind := t.reportFailure(ctx, err, opts, sessionID, tenantID, start)
	if kind == "" || t.fallback == nil {
		return nil, nil, err
	}

	comp, ferr := t.fallback.CompleteOnce(ctx, history, opts)
	if ferr != nil {
		return nil, nil, err
	}
	metrics.FallbackRepliesTotal.WithLabelValues(string(kind)).Inc()
	return comp, t.metadata(comp, tmplName, string(kind), true), nil
}

// completeStream invokes the provider's streaming call, mirroring each
// cumulative delta into the transcript message at idx and forwarding it to
// the sink. On classified failure it restarts from scratch against the
// fallback provider when enabled.
func (t *TurnService) completeStream(ctx context.Context, rt *Runtime, idx int, history []model.ChatMessage, opts provider.Options, tmplName, sessionID, tenantID string, sink StreamSink) (*provider.Completion, *model.MessageMetadata, error) {
	forward := func(textSoFar string, i int) error {
		rt.mu.Lock()
		rt.Session.Messages[idx].Content = textSoFar
		rt.mu.Unlock()
		return sink.Delta(textSoFar, i)
	}

	start := time.Now()
	var comp *provider.Completion
	stream, err := t.provider.CompleteStream(ctx, history, opts)
	if err == nil {
		comp, err = stream.Collect(forward)
	}
	if err == nil {
		metrics.RecordCompletion(t.provider.Name(), comp.Model, "ok", time.Since(start).Seconds(), comp.TokensUsed)
		return comp, t.metadata(comp, tmplName, "", false), nil
	}

	kind := t.reportFailure(ctx, err, opts, sessionID, tenantID, start)
	if kind == "" || t.fallback == nil {
		// Unclassified errors are consumer-side (abandonment); either way the
		// turn is over.
		return nil, nil, err
	}

	fstream, ferr := t.fallback.CompleteStream(ctx, history, opts)
	if ferr != nil {
		return nil, nil, err
	}
	comp, ferr = fstream.Collect(forward)
	if ferr != nil {
		return nil, nil, err
	}
	metrics.FallbackRepliesTotal.WithLabelValues(string(kind)).Inc()
	return comp, t.metadata(comp, tmplName, string(kind), true), nil
}

// reportFailure classifies a provider error, records it and returns its kind.
// Unclassified errors return an empty kind.
func (t *TurnService) reportFailure(ctx context.Context, err error, opts provider.Options, sessionID, tenantID string, start time.Time) provider.Kind {
	kind := provider.KindOf(err)
	if kind == "" {
		return ""
	}

	metrics.RecordCompletion(t.provider.Name(), opts.Model, string(kind), time.Since(start).Seconds(), 0)
	t.logger.Warn("completion provider failed",
		zap.String("session_id", sessionID),
		zap.String("kind", string(kind)),
		zap.Error(err))
	t.audit.Publish(ctx, &model.AuditEvent{
		SessionID: sessionID,
		TenantID:  tenantID,
		Action:    model.AuditActionProviderError,
		Reason:    string(kind),
	})
	return kind
}

// finishTurn records metrics, auditing and persistence for a completed turn.
func (t *TurnService) finishTurn(ctx context.Context, rt *Runtime, tenantID string, turn *turnState, tmplName string, md *model.MessageMetadata) {
	t.sessions.Persist(ctx, rt)

	outcome := "completed"
	if md.Demo {
		outcome = "fallback"
	}
	metrics.TurnsTotal.WithLabelValues(tenantID, outcome).Inc()

	if turn.completed && tmplName != "" {
		metrics.InterviewsCompleted.WithLabelValues(tmplName).Inc()
	}

	t.audit.Publish(ctx, &model.AuditEvent{
		SessionID: rt.Session.ID,
		TenantID:  tenantID,
		Action:    model.AuditActionTurnCompleted,
		Details: map[string]any{
			"model":       md.Model,
			"tokens_used": md.TokensUsed,
			"demo":        md.Demo,
		},
	})
}

func (t *TurnService) response(rt *Runtime, turn *turnState) *model.TurnResponse {
	rt.mu.Lock()
	info := rt.Session.Info()
	rt.mu.Unlock()

	return &model.TurnResponse{
		Session:  info,
		Messages: turn.messages,
		Question: turn.question,
	}
}

func (t *TurnService) metadata(comp *provider.Completion, tmplName, errKind string, demo bool) *model.MessageMetadata {
	return &model.MessageMetadata{
		Model:        comp.Model,
		TokensUsed:   comp.TokensUsed,
		LatencyMs:    comp.LatencyMs,
		FinishReason: comp.FinishReason,
		TemplateName: tmplName,
		Demo:         demo,
		Error:        errKind,
	}
}

func titleFromInput(content string) string {
	title := strings.TrimSpace(content)
	runes := []rune(title)
	if len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen]) + "…"
	}
	return title
}
