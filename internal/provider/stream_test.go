package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamCollect(t *testing.T) {
	t.Run("returns completion after deltas", func(t *testing.T) {
		s := newStream()
		go func() {
			defer s.finish()
			ctx := context.Background()
			s.send(ctx, Event{Type: EventDelta, TextSoFar: "a"})
			s.send(ctx, Event{Type: EventDelta, TextSoFar: "ab"})
			s.send(ctx, Event{Type: EventDone, Completion: &Completion{Content: "ab"}})
		}()

		var indexes []int
		comp, err := s.Collect(func(textSoFar string, index int) error {
			indexes = append(indexes, index)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ab", comp.Content)
		assert.Equal(t, []int{0, 1}, indexes)
	})

	t.Run("onDelta error abandons the stream", func(t *testing.T) {
		s := newStream()
		producerDone := make(chan struct{})
		go func() {
			defer close(producerDone)
			defer s.finish()
			ctx := context.Background()
			for i := 0; ; i++ {
				if !s.send(ctx, Event{Type: EventDelta, TextSoFar: "x"}) {
					return
				}
			}
		}()

		sentinel := errors.New("client gone")
		_, err := s.Collect(func(string, int) error { return sentinel })
		assert.ErrorIs(t, err, sentinel)

		select {
		case <-producerDone:
		case <-time.After(time.Second):
			t.Fatal("producer did not stop after abandonment")
		}
	})

	t.Run("empty stream reports a missing terminal event", func(t *testing.T) {
		s := newStream()
		go s.finish()

		_, err := s.Collect(nil)
		assert.Equal(t, KindUnavailable, KindOf(err))
	})
}

func TestStreamClose(t *testing.T) {
	t.Run("close is idempotent", func(t *testing.T) {
		s := newStream()
		s.Close()
		s.Close()
	})

	t.Run("send observes abandonment", func(t *testing.T) {
		s := newStream()
		s.Close()
		ok := s.send(context.Background(), Event{Type: EventDelta})
		assert.False(t, ok)
	})

	t.Run("send observes context cancellation", func(t *testing.T) {
		s := newStream()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ok := s.send(ctx, Event{Type: EventDelta})
		assert.False(t, ok)
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindRateLimited, KindOf(rateLimited("rl", nil)))
	assert.Equal(t, KindUnavailable, KindOf(unavailable("u", nil)))
	assert.Equal(t, KindMalformedStream, KindOf(malformed("m", nil)))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
