package provider

import (
	"context"
	"sync"
)

// EventType identifies a streaming event.
type EventType string

const (
	// EventDelta carries the cumulative text produced so far.
	EventDelta EventType = "delta"
	// EventDone terminates a successful stream with the normalized result.
	EventDone EventType = "done"
	// EventError terminates a failed stream.
	EventError EventType = "error"
)

// Event is one element of a completion stream. A stream yields zero or more
// delta events, each carrying a prefix-extension of the previous text,
// followed by exactly one done or error event.
type Event struct {
	Type       EventType
	TextSoFar  string
	Completion *Completion
	Err        error
}

// Stream is a single-consumer, ordered, finite sequence of completion events.
// Consumers range over Events until it is closed; abandoning a stream early
// requires calling Close so the producer stops forwarding.
type Stream struct {
	events    chan Event
	abandoned chan struct{}
	closeOnce sync.Once
}

func newStream() *Stream {
	return &Stream{
		events:    make(chan Event),
		abandoned: make(chan struct{}),
	}
}

// Events returns the event channel. It is closed after the terminal event.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Close abandons the stream. The producer stops forwarding further events
// without raising; the upstream provider call is not guaranteed to be
// cancelled. Close is idempotent and safe after the stream has finished.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.abandoned)
	})
}

// send delivers an event to the consumer. It returns false when the consumer
// abandoned the stream or the context was cancelled, signalling the producer
// to stop.
func (s *Stream) send(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.abandoned:
		return false
	case <-ctx.Done():
		return false
	}
}

// finish closes the event channel. Must be called exactly once by the
// producer, after the terminal event (or after send reported abandonment).
func (s *Stream) finish() {
	close(s.events)
}

// Collect drains the stream and returns the final completion, for callers
// that want streaming transport with blocking semantics. The onDelta callback
// may be nil.
func (s *Stream) Collect(onDelta func(textSoFar string, index int) error) (*Completion, error) {
	index := 0
	for ev := range s.events {
		switch ev.Type {
		case EventDelta:
			if onDelta != nil {
				if err := onDelta(ev.TextSoFar, index); err != nil {
					s.Close()
					return nil, err
				}
			}
			index++
		case EventDone:
			return ev.Completion, nil
		case EventError:
			return nil, ev.Err
		}
	}
	return nil, unavailable("stream ended without terminal event", nil)
}
