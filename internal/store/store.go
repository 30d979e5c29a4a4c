// Package store provides persistence drivers for interview sessions.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guided-ai/interview-platform/internal/config"
	"github.com/guided-ai/interview-platform/internal/model"
)

var (
	// ErrNotFound is returned when a session does not exist in the store.
	ErrNotFound = errors.New("session not found")
	// ErrVersionConflict is returned when an update races a concurrent write.
	ErrVersionConflict = errors.New("session version conflict")
)

// Store persists session snapshots. Updates use optimistic locking on
// Session.Version.
type Store interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Update(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// New builds a Store from configuration. Supported drivers are
// "memory" and "redis".
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.SessionStore {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return NewRedisStore(client, cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown session store driver %q", cfg.SessionStore)
	}
}

func touchCreate(s *model.Session, now time.Time) {
	s.CreatedAt = now
	s.UpdatedAt = now
	s.Version = 1
}
