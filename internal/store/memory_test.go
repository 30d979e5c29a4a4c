package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-ai/interview-platform/internal/model"
)

func testSession(id string) *model.Session {
	return &model.Session{
		ID:       id,
		TenantID: "tenant-1",
		UserID:   "user-1",
		Title:    "hello",
		Phase:    model.PhaseInactive,
	}
}

func TestMemoryStoreCreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sess := testSession("s1")
	require.NoError(t, s.Create(ctx, sess))
	assert.Equal(t, int64(1), sess.Version)
	assert.False(t, sess.CreatedAt.IsZero())

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, int64(1), got.Version)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sess := testSession("s1")
	require.NoError(t, s.Create(ctx, sess))

	t.Run("matching version increments", func(t *testing.T) {
		sess.Title = "updated"
		require.NoError(t, s.Update(ctx, sess))
		assert.Equal(t, int64(2), sess.Version)

		got, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "updated", got.Title)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		stale := testSession("s1")
		stale.Version = 1
		assert.ErrorIs(t, s.Update(ctx, stale), ErrVersionConflict)
	})

	t.Run("missing session", func(t *testing.T) {
		assert.ErrorIs(t, s.Update(ctx, testSession("ghost")), ErrNotFound)
	})
}

func TestMemoryStoreSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sess := testSession("s1")
	sess.Messages = []model.Message{{ID: "m1", Role: model.RoleUser, Content: "hi"}}
	require.NoError(t, s.Create(ctx, sess))

	// Mutating the caller's copy must not leak into the store.
	sess.Messages[0].Content = "changed"
	sess.Answers.Set("name", "x")

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Messages[0].Content)
	assert.Equal(t, 0, got.Answers.Len())
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, testSession("s1")))
	require.NoError(t, s.Delete(ctx, "s1"))

	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, s.Delete(ctx, "s1"))
}
