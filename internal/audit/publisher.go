package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/guided-ai/interview-platform/internal/model"
	"github.com/guided-ai/interview-platform/pkg/logger"
)

const (
	// StreamName is the name of the audit stream.
	StreamName = "AUDIT"

	// SubjectPrefix is the prefix for all audit subjects.
	SubjectPrefix = "audit"
)

// Publisher writes audit events to JetStream. A nil Publisher is a no-op, so
// callers never need to branch on whether auditing is enabled.
type Publisher struct {
	client *Client
	logger *logger.Logger
}

// NewPublisher creates a publisher on an established client.
func NewPublisher(client *Client, log *logger.Logger) *Publisher {
	return &Publisher{client: client, logger: log}
}

// EnsureStream creates the audit stream if it does not exist.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	if p == nil {
		return nil
	}
	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Interview platform audit events",
	})
	if err != nil {
		return fmt.Errorf("failed to create audit stream: %w", err)
	}
	return nil
}

// Subject returns the subject for an event.
func Subject(tenantID, sessionID string, action model.AuditAction) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, tenantID, sessionID, action)
}

// Publish records an audit event. Failures are logged, not returned: auditing
// must never stall a turn.
func (p *Publisher) Publish(ctx context.Context, event *model.AuditEvent) {
	if p == nil {
		return
	}
	if event.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			event.ID = id.String()
		}
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal audit event", zap.Error(err))
		return
	}

	subject := Subject(event.TenantID, event.SessionID, event.Action)
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		p.logger.Error("failed to publish audit event",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
