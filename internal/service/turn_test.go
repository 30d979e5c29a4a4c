package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-ai/interview-platform/internal/model"
	"github.com/guided-ai/interview-platform/internal/provider"
	"github.com/guided-ai/interview-platform/internal/store"
	"github.com/guided-ai/interview-platform/internal/template"
	"github.com/guided-ai/interview-platform/pkg/logger"
)

// fakeProvider is a scriptable completion client for single-shot turns.
type fakeProvider struct {
	mu          sync.Mutex
	content     string
	err         error
	calls       int
	lastHistory []model.ChatMessage

	// block, when set, holds CompleteOnce until released. Used to assert the
	// in-flight guard.
	block chan struct{}
}

func (f *fakeProvider) CompleteOnce(ctx context.Context, history []model.ChatMessage, opts provider.Options) (*provider.Completion, error) {
	f.mu.Lock()
	f.calls++
	f.lastHistory = append([]model.ChatMessage(nil), history...)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Completion{
		Content:      f.content,
		Model:        "fake-model",
		TokensUsed:   5,
		LatencyMs:    1,
		FinishReason: "stop",
	}, nil
}

func (f *fakeProvider) CompleteStream(ctx context.Context, history []model.ChatMessage, opts provider.Options) (*provider.Stream, error) {
	f.mu.Lock()
	f.calls++
	f.lastHistory = append([]model.ChatMessage(nil), history...)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	// Delegate success to the demo client's synthesized stream.
	return provider.NewDemoClient().CompleteStream(ctx, history, opts)
}

func (f *fakeProvider) Name() string     { return "fake" }
func (f *fakeProvider) Models() []string { return []string{"fake-model"} }

// collectSink records sink callbacks for streaming assertions.
type collectSink struct {
	questions []*model.Question
	deltas    []string
	done      *model.Message
}

func (s *collectSink) Question(q *model.Question) error { s.questions = append(s.questions, q); return nil }
func (s *collectSink) Delta(textSoFar string, _ int) error {
	s.deltas = append(s.deltas, textSoFar)
	return nil
}
func (s *collectSink) Done(msg *model.Message) error { s.done = msg; return nil }

func emailTemplate(t *testing.T, lib *template.Library) *model.Template {
	t.Helper()
	tmpl := &model.Template{
		Name:         "Business Email",
		SystemPrompt: "Write a {tone} email to {recipient}.",
		Variables: []model.Variable{
			{Name: "recipient", Label: "Who is the email for?", Type: model.VariableTypeText, Required: true},
			{Name: "tone", Label: "What tone?", Type: model.VariableTypeText, Default: "polite"},
		},
	}
	require.NoError(t, lib.Add(tmpl))
	return tmpl
}

func newFixture(t *testing.T, p provider.Client, fallback provider.Client) (*SessionService, *TurnService, *template.Library) {
	t.Helper()
	log := logger.NewNop()
	lib := template.NewLibrary(log)
	sessions := NewSessionService(lib, store.NewMemoryStore(), nil, log)
	turns := NewTurnService(sessions, p, fallback, nil, log, 20, provider.Options{Model: "fake-model"})
	return sessions, turns, lib
}

func TestRouteInputFreeChat(t *testing.T) {
	fake := &fakeProvider{content: "hello back"}
	sessions, turns, _ := newFixture(t, fake, nil)
	ctx := context.Background()

	created, err := sessions.Create(ctx, "tenant-1", "user-1", &model.CreateSessionRequest{})
	require.NoError(t, err)
	assert.Nil(t, created.Question)

	resp, err := turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "hi"})
	require.NoError(t, err)

	require.Len(t, resp.Messages, 2)
	assert.Equal(t, model.RoleUser, resp.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, resp.Messages[1].Role)
	assert.Equal(t, "hello back", resp.Messages[1].Content)
	require.NotNil(t, resp.Messages[1].Metadata)
	assert.False(t, resp.Messages[1].Metadata.Demo)
	assert.Equal(t, "fake-model", resp.Messages[1].Metadata.Model)

	// Free chat history carries no system turn.
	require.NotEmpty(t, fake.lastHistory)
	assert.Equal(t, "user", fake.lastHistory[0].Role)

	// The first user input becomes the title.
	assert.Equal(t, "hi", resp.Session.Title)
}

func TestRouteInputEmptyFreeChat(t *testing.T) {
	fake := &fakeProvider{content: "x"}
	sessions, turns, _ := newFixture(t, fake, nil)
	ctx := context.Background()

	created, err := sessions.Create(ctx, "tenant-1", "user-1", &model.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, fake.calls)
}

func TestRouteInputInterview(t *testing.T) {
	fake := &fakeProvider{content: "Dear Alice, ..."}
	sessions, turns, lib := newFixture(t, fake, nil)
	tmpl := emailTemplate(t, lib)
	ctx := context.Background()

	created, err := sessions.Create(ctx, "tenant-1", "user-1", &model.CreateSessionRequest{TemplateID: tmpl.ID})
	require.NoError(t, err)
	require.NotNil(t, created.Question)
	assert.Equal(t, "recipient", created.Question.VariableName)

	t.Run("empty required answer re-prompts", func(t *testing.T) {
		resp, err := turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: ""})
		require.NoError(t, err)
		require.NotNil(t, resp.Question)
		assert.Equal(t, "recipient", resp.Question.VariableName)
		assert.Zero(t, fake.calls)
	})

	t.Run("answer advances to the next question", func(t *testing.T) {
		resp, err := turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "Alice"})
		require.NoError(t, err)
		require.NotNil(t, resp.Question)
		assert.Equal(t, "tone", resp.Question.VariableName)
		assert.Zero(t, fake.calls)
	})

	t.Run("final answer renders and completes", func(t *testing.T) {
		resp, err := turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "friendly"})
		require.NoError(t, err)
		assert.Nil(t, resp.Question)
		assert.Equal(t, model.PhaseComplete, resp.Session.Phase)

		require.NotEmpty(t, fake.lastHistory)
		assert.Equal(t, "system", fake.lastHistory[0].Role)
		assert.Equal(t, "Write a friendly email to Alice.", fake.lastHistory[0].Content)

		last := resp.Messages[len(resp.Messages)-1]
		assert.Equal(t, model.RoleAssistant, last.Role)
		require.NotNil(t, last.Metadata)
		assert.Equal(t, "Business Email", last.Metadata.TemplateName)
	})

	t.Run("next turn reuses the rendered prompt", func(t *testing.T) {
		_, err := turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "make it shorter"})
		require.NoError(t, err)
		assert.Equal(t, "system", fake.lastHistory[0].Role)
		assert.Equal(t, "Write a friendly email to Alice.", fake.lastHistory[0].Content)
	})
}

func TestRouteInputZeroVariableTemplate(t *testing.T) {
	fake := &fakeProvider{content: "done"}
	sessions, turns, lib := newFixture(t, fake, nil)

	tmpl := &model.Template{Name: "Plain", SystemPrompt: "You are terse."}
	require.NoError(t, lib.Add(tmpl))
	ctx := context.Background()

	created, err := sessions.Create(ctx, "tenant-1", "user-1", &model.CreateSessionRequest{TemplateID: tmpl.ID})
	require.NoError(t, err)
	assert.Nil(t, created.Question)
	assert.Equal(t, model.PhaseComplete, created.Session.Phase)

	// The very next input triggers rendering and completion, no interview.
	resp, err := turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "go"})
	require.NoError(t, err)
	assert.Nil(t, resp.Question)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "system", fake.lastHistory[0].Role)
	assert.Equal(t, "You are terse.", fake.lastHistory[0].Content)
}

func TestRouteInputFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("rate limited turn substitutes a demo reply", func(t *testing.T) {
		fake := &fakeProvider{err: &provider.Error{Kind: provider.KindRateLimited, Msg: "slow down"}}
		sessions, turns, _ := newFixture(t, fake, provider.NewDemoClient())

		created, err := sessions.Create(ctx, "tenant-1", "user-1", &model.CreateSessionRequest{})
		require.NoError(t, err)

		resp, err := turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "hi"})
		require.NoError(t, err)

		last := resp.Messages[len(resp.Messages)-1]
		require.NotNil(t, last.Metadata)
		assert.True(t, last.Metadata.Demo)
		assert.Equal(t, provider.DemoModel, last.Metadata.Model)
		assert.Equal(t, string(provider.KindRateLimited), last.Metadata.Error)

		// The session is not wedged: the next turn is accepted normally.
		fake.err = nil
		fake.content = "recovered"
		resp, err = turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "again"})
		require.NoError(t, err)
		last = resp.Messages[len(resp.Messages)-1]
		assert.False(t, last.Metadata.Demo)
		assert.Equal(t, "recovered", last.Content)
	})

	t.Run("fallback disabled surfaces the classified error", func(t *testing.T) {
		fake := &fakeProvider{err: &provider.Error{Kind: provider.KindUnavailable, Msg: "down"}}
		sessions, turns, _ := newFixture(t, fake, nil)

		created, err := sessions.Create(ctx, "tenant-1", "user-1", &model.CreateSessionRequest{})
		require.NoError(t, err)

		_, err = turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "hi"})
		assert.Equal(t, provider.KindUnavailable, provider.KindOf(err))

		// The user turn is still recorded.
		msgs, err := sessions.Messages(ctx, "tenant-1", created.Session.ID)
		require.NoError(t, err)
		require.Len(t, msgs.Messages, 1)
		assert.Equal(t, model.RoleUser, msgs.Messages[0].Role)
	})
}

func TestRouteInputBusySession(t *testing.T) {
	block := make(chan struct{})
	fake := &fakeProvider{content: "slow reply", block: block}
	sessions, turns, _ := newFixture(t, fake, nil)
	ctx := context.Background()

	created, err := sessions.Create(ctx, "tenant-1", "user-1", &model.CreateSessionRequest{})
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() {
		_, err := turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "first"})
		firstDone <- err
	}()

	// Wait for the first turn to reach the provider.
	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return fake.calls == 1
	}, time.Second, 5*time.Millisecond)

	_, err = turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "second"})
	assert.ErrorIs(t, err, ErrSessionBusy)

	close(block)
	require.NoError(t, <-firstDone)

	// After the first turn resolves the session accepts input again.
	_, err = turns.RouteInput(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "third"})
	assert.NoError(t, err)
}

func TestRouteInputStream(t *testing.T) {
	ctx := context.Background()

	t.Run("interview turn emits question then done", func(t *testing.T) {
		fake := &fakeProvider{}
		sessions, turns, lib := newFixture(t, fake, nil)
		tmpl := emailTemplate(t, lib)

		created, err := sessions.Create(ctx, "tenant-1", "user-1", &model.CreateSessionRequest{TemplateID: tmpl.ID})
		require.NoError(t, err)

		sink := &collectSink{}
		err = turns.RouteInputStream(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "Alice"}, sink)
		require.NoError(t, err)

		require.Len(t, sink.questions, 1)
		assert.Equal(t, "tone", sink.questions[0].VariableName)
		require.NotNil(t, sink.done)
		assert.Empty(t, sink.deltas)
	})

	t.Run("completion turn streams prefix-extending deltas", func(t *testing.T) {
		fake := &fakeProvider{}
		sessions, turns, _ := newFixture(t, fake, nil)

		created, err := sessions.Create(ctx, "tenant-1", "user-1", &model.CreateSessionRequest{})
		require.NoError(t, err)

		sink := &collectSink{}
		err = turns.RouteInputStream(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "hello"}, sink)
		require.NoError(t, err)

		require.NotEmpty(t, sink.deltas)
		require.NotNil(t, sink.done)
		assert.Equal(t, model.StatusFinal, sink.done.Status)
		assert.Equal(t, sink.deltas[len(sink.deltas)-1], sink.done.Content)

		// The transcript holds the finalized assistant message.
		msgs, err := sessions.Messages(ctx, "tenant-1", created.Session.ID)
		require.NoError(t, err)
		last := msgs.Messages[len(msgs.Messages)-1]
		assert.Equal(t, model.StatusFinal, last.Status)
		assert.Equal(t, sink.done.Content, last.Content)
	})

	t.Run("stream failure with fallback yields a demo stream", func(t *testing.T) {
		fake := &fakeProvider{err: &provider.Error{Kind: provider.KindUnavailable, Msg: "down"}}
		sessions, turns, _ := newFixture(t, fake, provider.NewDemoClient())

		created, err := sessions.Create(ctx, "tenant-1", "user-1", &model.CreateSessionRequest{})
		require.NoError(t, err)

		sink := &collectSink{}
		err = turns.RouteInputStream(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "hello"}, sink)
		require.NoError(t, err)

		require.NotNil(t, sink.done)
		require.NotNil(t, sink.done.Metadata)
		assert.True(t, sink.done.Metadata.Demo)
	})

	t.Run("stream failure without fallback discards the partial turn", func(t *testing.T) {
		fake := &fakeProvider{err: &provider.Error{Kind: provider.KindMalformedStream, Msg: "garbled"}}
		sessions, turns, _ := newFixture(t, fake, nil)

		created, err := sessions.Create(ctx, "tenant-1", "user-1", &model.CreateSessionRequest{})
		require.NoError(t, err)

		sink := &collectSink{}
		err = turns.RouteInputStream(ctx, "tenant-1", created.Session.ID, &model.SendInputRequest{Content: "hello"}, sink)
		assert.Equal(t, provider.KindMalformedStream, provider.KindOf(err))

		// No truncated assistant message is left behind.
		msgs, err := sessions.Messages(ctx, "tenant-1", created.Session.ID)
		require.NoError(t, err)
		for _, m := range msgs.Messages {
			assert.NotEqual(t, model.StatusStreaming, m.Status)
		}
		assert.Equal(t, model.RoleUser, msgs.Messages[len(msgs.Messages)-1].Role)
	})
}
