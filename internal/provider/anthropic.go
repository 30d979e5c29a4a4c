package provider

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/guided-ai/interview-platform/internal/model"
)

// AnthropicClient backs the invoker with the Anthropic Messages API.
type AnthropicClient struct {
	client       *anthropic.Client
	defaultModel string
}

// NewAnthropicClient creates a new Anthropic-backed provider client.
func NewAnthropicClient(apiKey, defaultModel string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	if defaultModel == "" {
		defaultModel = "claude-3-5-sonnet-20241022"
	}
	return &AnthropicClient{
		client:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: defaultModel,
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Models returns available models.
func (c *AnthropicClient) Models() []string {
	return []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
		"claude-3-haiku-20240307",
	}
}

func (c *AnthropicClient) params(history []model.ChatMessage, opts Options) anthropic.MessageNewParams {
	mdl := opts.Model
	if mdl == "" {
		mdl = c.defaultModel
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	// The Messages API takes the system prompt out of band.
	var system string
	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, msg := range history {
		if msg.Role == string(model.RoleSystem) {
			system = msg.Content
			continue
		}
		messages = append(messages, anthropic.MessageParam{
			Role: anthropic.F(anthropic.MessageParamRole(msg.Role)),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(msg.Content),
				},
			}),
		})
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(mdl),
		MaxTokens: anthropic.F(int64(maxTokens)),
		Messages:  anthropic.F(messages),
	}
	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(system),
			},
		})
	}
	if opts.Temperature > 0 && opts.Temperature <= 2.0 {
		params.Temperature = anthropic.F(opts.Temperature)
	}
	return params
}

// CompleteOnce sends a single completion request.
func (c *AnthropicClient) CompleteOnce(ctx context.Context, history []model.ChatMessage, opts Options) (*Completion, error) {
	start := time.Now()

	resp, err := c.client.Messages.New(ctx, c.params(history, opts))
	if err != nil {
		return nil, unavailable("Anthropic request failed", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	return &Completion{
		Content:      content,
		Model:        resp.Model,
		TokensUsed:   int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
		FinishReason: string(resp.StopReason),
	}, nil
}

// CompleteStream starts a streaming completion request.
func (c *AnthropicClient) CompleteStream(ctx context.Context, history []model.ChatMessage, opts Options) (*Stream, error) {
	start := time.Now()
	mdl := opts.Model
	if mdl == "" {
		mdl = c.defaultModel
	}

	upstream := c.client.Messages.NewStreaming(ctx, c.params(history, opts))

	s := newStream()
	go func() {
		defer s.finish()

		var content, stopReason string
		var tokensOut int

		for upstream.Next() {
			event := upstream.Current()

			switch event.Type {
			case anthropic.MessageStreamEventTypeContentBlockDelta:
				if delta, ok := event.Delta.(anthropic.ContentBlockDeltaEventDelta); ok && delta.Type == "text_delta" {
					content += delta.Text
					if !s.send(ctx, Event{Type: EventDelta, TextSoFar: content}) {
						return
					}
				}
			case anthropic.MessageStreamEventTypeMessageDelta:
				if delta, ok := event.Delta.(anthropic.MessageDeltaEventDelta); ok {
					stopReason = string(delta.StopReason)
				}
				tokensOut = int(event.Usage.OutputTokens)
			}
		}

		if err := upstream.Err(); err != nil {
			s.send(ctx, Event{Type: EventError, Err: unavailable("Anthropic stream failed", err)})
			return
		}

		s.send(ctx, Event{Type: EventDone, Completion: &Completion{
			Content:      content,
			Model:        mdl,
			TokensUsed:   tokensOut,
			LatencyMs:    time.Since(start).Milliseconds(),
			FinishReason: stopReason,
		}})
	}()

	return s, nil
}
