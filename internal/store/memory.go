package store

import (
	"context"
	"sync"
	"time"

	"github.com/guided-ai/interview-platform/internal/model"
)

// MemoryStore keeps session snapshots in an in-memory map with optimistic
// locking. Suitable for single-instance deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
	}
}

// Create stores a new session with Version set to 1.
func (s *MemoryStore) Create(ctx context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	touchCreate(sess, time.Now())
	s.sessions[sess.ID] = snapshot(sess)
	return nil
}

// Get returns a copy of the stored session, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(stored), nil
}

// Update persists the session if its Version matches the stored one,
// then increments the version. Returns ErrVersionConflict on a mismatch.
func (s *MemoryStore) Update(ctx context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[sess.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != sess.Version {
		return ErrVersionConflict
	}

	sess.Version++
	sess.UpdatedAt = time.Now()
	s.sessions[sess.ID] = snapshot(sess)
	return nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Close releases the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}

func snapshot(sess *model.Session) *model.Session {
	cp := *sess
	cp.Messages = append([]model.Message(nil), sess.Messages...)
	cp.Answers = sess.Answers.Clone()
	return &cp
}
