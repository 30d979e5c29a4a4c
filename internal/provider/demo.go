package provider

import (
	"context"
	"strings"
	"time"

	"github.com/guided-ai/interview-platform/internal/model"
)

// DemoModel is the model name reported by synthetic fallback replies.
const DemoModel = "demo"

// DemoClient produces synthetic replies without contacting any provider. It
// backs the fallback mode: when every real attempt fails the conversation
// still gets a visibly labeled reply instead of a broken state. Callers must
// mark the resulting message with demo metadata.
type DemoClient struct{}

// NewDemoClient creates the fallback client.
func NewDemoClient() *DemoClient {
	return &DemoClient{}
}

// Name returns the provider name.
func (c *DemoClient) Name() string {
	return "demo"
}

// Models returns the synthetic model identifier.
func (c *DemoClient) Models() []string {
	return []string{DemoModel}
}

// CompleteOnce synthesizes a reply from the last user turn.
func (c *DemoClient) CompleteOnce(ctx context.Context, history []model.ChatMessage, opts Options) (*Completion, error) {
	start := time.Now()
	content := demoReply(lastUserContent(history))
	return &Completion{
		Content:      content,
		Model:        DemoModel,
		TokensUsed:   0,
		LatencyMs:    time.Since(start).Milliseconds(),
		FinishReason: "stop",
	}, nil
}

// CompleteStream synthesizes a reply and streams it in word-sized increments.
func (c *DemoClient) CompleteStream(ctx context.Context, history []model.ChatMessage, opts Options) (*Stream, error) {
	start := time.Now()
	content := demoReply(lastUserContent(history))

	s := newStream()
	go func() {
		defer s.finish()

		words := strings.Fields(content)
		var sofar strings.Builder
		for _, w := range words {
			if sofar.Len() > 0 {
				sofar.WriteByte(' ')
			}
			sofar.WriteString(w)
			if !s.send(ctx, Event{Type: EventDelta, TextSoFar: sofar.String()}) {
				return
			}
		}
		s.send(ctx, Event{Type: EventDone, Completion: &Completion{
			Content:      sofar.String(),
			Model:        DemoModel,
			LatencyMs:    time.Since(start).Milliseconds(),
			FinishReason: "stop",
		}})
	}()
	return s, nil
}

func lastUserContent(history []model.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == string(model.RoleUser) {
			return history[i].Content
		}
	}
	return ""
}

func demoReply(input string) string {
	lower := strings.ToLower(input)

	switch {
	case strings.Contains(lower, "project"):
		return "This is a demo reply generated while the completion provider is unavailable.\n\n" +
			"On project work, the usual levers are a clear goal with measurable success criteria, " +
			"regular progress checkpoints, and early surfacing of risks. " +
			"Retry your question once the provider is reachable for a full answer."
	case strings.Contains(lower, "security"):
		return "This is a demo reply generated while the completion provider is unavailable.\n\n" +
			"On security topics, start from multi-factor authentication, least-privilege access, " +
			"and a rehearsed incident response plan. " +
			"Retry your question once the provider is reachable for a full answer."
	default:
		return "This is a demo reply generated while the completion provider is unavailable. " +
			"Your message was recorded and the conversation remains usable; " +
			"retry once the provider is reachable for a full answer."
	}
}
