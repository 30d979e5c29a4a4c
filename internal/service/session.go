// Package service provides business logic for the guided conversation
// platform.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guided-ai/interview-platform/internal/audit"
	"github.com/guided-ai/interview-platform/internal/interview"
	"github.com/guided-ai/interview-platform/internal/model"
	"github.com/guided-ai/interview-platform/internal/store"
	"github.com/guided-ai/interview-platform/internal/template"
	"github.com/guided-ai/interview-platform/pkg/logger"
	"github.com/guided-ai/interview-platform/pkg/metrics"
)

var (
	// ErrSessionNotFound is returned when a session does not exist or belongs
	// to a different tenant.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy is returned when a turn is routed into a session whose
	// previous turn has not resolved yet. Turns within one session are
	// strictly sequential.
	ErrSessionBusy = errors.New("a turn is already in flight for this session")
)

// Runtime is the live, in-process state of one session: the persisted
// snapshot plus the interview state machine rebuilt from it. mu guards every
// field; inFlight serializes turns.
type Runtime struct {
	mu       sync.Mutex
	inFlight bool

	Session *model.Session
	Machine *interview.Machine
}

// syncState copies the machine's interview state onto the session snapshot.
// Caller must hold mu.
func (rt *Runtime) syncState() {
	rt.Session.Phase = rt.Machine.Phase()
	rt.Session.Cursor = rt.Machine.Cursor()
	rt.Session.Answers = rt.Machine.Answers()
}

// SessionService manages session lifecycle: creation, lookup, listing,
// reset and deletion. Live sessions are held in memory and snapshotted to
// the store after every mutation; a session missing from memory is restored
// from its snapshot on first access.
type SessionService struct {
	registry template.Registry
	store    store.Store
	audit    *audit.Publisher
	logger   *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Runtime
}

// NewSessionService creates a new session service.
func NewSessionService(registry template.Registry, st store.Store, pub *audit.Publisher, log *logger.Logger) *SessionService {
	return &SessionService{
		registry: registry,
		store:    st,
		audit:    pub,
		logger:   log,
		sessions: make(map[string]*Runtime),
	}
}

// Create starts a new session. When req.TemplateID is set the guided
// interview begins immediately and the first question is returned and
// appended to the transcript as an assistant turn.
func (s *SessionService) Create(ctx context.Context, tenantID, userID string, req *model.CreateSessionRequest) (*model.CreateSessionResponse, error) {
	now := time.Now()
	sess := &model.Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TenantID:  tenantID,
		UserID:    userID,
		Title:     req.Title,
		Phase:     model.PhaseInactive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	machine := interview.New()
	var question *model.Question

	if req.TemplateID != "" {
		tmpl, err := s.registry.Get(ctx, req.TemplateID)
		if err != nil {
			return nil, err
		}
		question, err = machine.Start(tmpl)
		if err != nil {
			return nil, err
		}
		sess.TemplateID = tmpl.ID
		if sess.Title == "" {
			sess.Title = tmpl.Name
		}
		if question != nil {
			msg := newMessage(sess.ID, model.RoleAssistant, question.Prompt, model.StatusFinal,
				&model.MessageMetadata{TemplateName: tmpl.Name})
			sess.Messages = append(sess.Messages, *msg)
		}
		if rec, ok := s.registry.(template.UsageRecorder); ok {
			rec.RecordUse(tmpl.ID)
		}
		metrics.InterviewsStarted.WithLabelValues(tmpl.Name).Inc()
		s.audit.Publish(ctx, &model.AuditEvent{
			SessionID: sess.ID,
			TenantID:  tenantID,
			Action:    model.AuditActionTemplateUsed,
			Details:   map[string]any{"template_id": tmpl.ID, "template_name": tmpl.Name},
		})
	}

	rt := &Runtime{Session: sess, Machine: machine}
	rt.syncState()

	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	s.mu.Lock()
	s.sessions[sess.ID] = rt
	s.mu.Unlock()

	mode := "free"
	if sess.TemplateID != "" {
		mode = "template"
	}
	metrics.SessionsTotal.WithLabelValues(tenantID, mode).Inc()

	s.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("tenant_id", tenantID),
		zap.String("template_id", sess.TemplateID))

	return &model.CreateSessionResponse{
		Session:  sess.Info(),
		Question: question,
	}, nil
}

// Get returns the live runtime for a session, restoring it from the store
// when this instance has not seen it yet.
func (s *SessionService) Get(ctx context.Context, tenantID, sessionID string) (*Runtime, error) {
	s.mu.RLock()
	rt, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if ok {
		if rt.Session.TenantID != tenantID {
			return nil, ErrSessionNotFound
		}
		return rt, nil
	}
	return s.restore(ctx, tenantID, sessionID)
}

// restore rebuilds a runtime from its persisted snapshot.
func (s *SessionService) restore(ctx context.Context, tenantID, sessionID string) (*Runtime, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if sess.TenantID != tenantID {
		return nil, ErrSessionNotFound
	}

	machine := interview.New()
	if sess.Phase != model.PhaseInactive {
		tmpl, err := s.registry.Get(ctx, sess.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("restoring session template: %w", err)
		}
		if err := machine.Restore(tmpl, sess.Phase, sess.Cursor, sess.Answers.Clone()); err != nil {
			return nil, err
		}
	}

	rt := &Runtime{Session: sess, Machine: machine}

	s.mu.Lock()
	// Another request may have restored it concurrently; keep the first.
	if existing, ok := s.sessions[sessionID]; ok {
		rt = existing
	} else {
		s.sessions[sessionID] = rt
	}
	s.mu.Unlock()

	s.logger.Debug("session restored from store", zap.String("session_id", sessionID))
	return rt, nil
}

// List returns summaries of this tenant's sessions known to this instance,
// newest first.
func (s *SessionService) List(ctx context.Context, tenantID string) (*model.ListSessionsResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []model.SessionInfo
	for _, rt := range s.sessions {
		rt.mu.Lock()
		if rt.Session.TenantID == tenantID {
			infos = append(infos, *rt.Session.Info())
		}
		rt.mu.Unlock()
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})

	return &model.ListSessionsResponse{
		Sessions: infos,
		Total:    len(infos),
	}, nil
}

// Messages returns the session transcript in wall-clock order.
func (s *SessionService) Messages(ctx context.Context, tenantID, sessionID string) (*model.ListMessagesResponse, error) {
	rt, err := s.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	rt.mu.Lock()
	msgs := append([]model.Message(nil), rt.Session.Messages...)
	rt.mu.Unlock()

	return &model.ListMessagesResponse{
		Messages: msgs,
		Total:    len(msgs),
	}, nil
}

// Reset cancels any in-progress interview and returns the session to free
// chat, discarding collected answers. The transcript is unaffected.
func (s *SessionService) Reset(ctx context.Context, tenantID, sessionID string) (*model.SessionInfo, error) {
	rt, err := s.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	rt.mu.Lock()
	rt.Machine.Reset()
	rt.Session.TemplateID = ""
	rt.syncState()
	info := rt.Session.Info()
	rt.mu.Unlock()

	s.Persist(ctx, rt)

	s.audit.Publish(ctx, &model.AuditEvent{
		SessionID: sessionID,
		TenantID:  tenantID,
		Action:    model.AuditActionSessionReset,
	})

	return info, nil
}

// Delete removes a session from memory and the store.
func (s *SessionService) Delete(ctx context.Context, tenantID, sessionID string) error {
	if _, err := s.Get(ctx, tenantID, sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	s.logger.Info("session deleted",
		zap.String("session_id", sessionID),
		zap.String("tenant_id", tenantID))
	return nil
}

// BeginTurn marks the session as having a turn in flight. It fails with
// ErrSessionBusy while a previous turn is outstanding; EndTurn releases it.
func (s *SessionService) BeginTurn(ctx context.Context, tenantID, sessionID string) (*Runtime, error) {
	rt, err := s.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.inFlight {
		return nil, ErrSessionBusy
	}
	rt.inFlight = true
	return rt, nil
}

// EndTurn releases the in-flight guard taken by BeginTurn.
func (s *SessionService) EndTurn(rt *Runtime) {
	rt.mu.Lock()
	rt.inFlight = false
	rt.mu.Unlock()
}

// Persist snapshots the runtime's session to the store. Persistence failures
// are logged, not returned: the in-memory session remains authoritative for
// this instance.
func (s *SessionService) Persist(ctx context.Context, rt *Runtime) {
	rt.mu.Lock()
	sess := rt.Session
	err := s.store.Update(ctx, sess)
	rt.mu.Unlock()

	if err != nil {
		s.logger.Warn("failed to persist session snapshot",
			zap.String("session_id", sess.ID),
			zap.Error(err))
	}
}

func newMessage(sessionID string, role model.Role, content string, status model.MessageStatus, md *model.MessageMetadata) *model.Message {
	return &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Status:    status,
		CreatedAt: time.Now(),
		Metadata:  md,
	}
}
