package provider

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/guided-ai/interview-platform/internal/model"
)

// OpenAIClient backs the invoker with the OpenAI chat completion API.
type OpenAIClient struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAIClient creates a new OpenAI-backed provider client.
func NewOpenAIClient(apiKey, defaultModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o"
	}
	return &OpenAIClient{
		client:       openai.NewClient(apiKey),
		defaultModel: defaultModel,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Models returns available models.
func (c *OpenAIClient) Models() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-4",
		"gpt-3.5-turbo",
	}
}

func (c *OpenAIClient) request(history []model.ChatMessage, opts Options, stream bool) openai.ChatCompletionRequest {
	mdl := opts.Model
	if mdl == "" {
		mdl = c.defaultModel
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var temperature float32
	if opts.Temperature > 0 && opts.Temperature <= 2.0 {
		temperature = float32(opts.Temperature)
	}

	messages := make([]openai.ChatCompletionMessage, len(history))
	for i, msg := range history {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       mdl,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      stream,
	}
}

// CompleteOnce sends a single completion request.
func (c *OpenAIClient) CompleteOnce(ctx context.Context, history []model.ChatMessage, opts Options) (*Completion, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, c.request(history, opts, false))
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	var content, finishReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = string(resp.Choices[0].FinishReason)
	}

	return &Completion{
		Content:      content,
		Model:        resp.Model,
		TokensUsed:   resp.Usage.TotalTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
		FinishReason: finishReason,
	}, nil
}

// CompleteStream starts a streaming completion request.
func (c *OpenAIClient) CompleteStream(ctx context.Context, history []model.ChatMessage, opts Options) (*Stream, error) {
	start := time.Now()
	req := c.request(history, opts, true)

	upstream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	s := newStream()
	go func() {
		defer upstream.Close()
		defer s.finish()

		var content, finishReason string
		for {
			response, err := upstream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				s.send(ctx, Event{Type: EventError, Err: classifyOpenAIError(err)})
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			if delta := response.Choices[0].Delta.Content; delta != "" {
				content += delta
				if !s.send(ctx, Event{Type: EventDelta, TextSoFar: content}) {
					return
				}
			}
			if response.Choices[0].FinishReason != "" {
				finishReason = string(response.Choices[0].FinishReason)
			}
		}

		// The streaming API does not report usage; estimate from length.
		s.send(ctx, Event{Type: EventDone, Completion: &Completion{
			Content:      content,
			Model:        req.Model,
			TokensUsed:   len(content) / 4,
			LatencyMs:    time.Since(start).Milliseconds(),
			FinishReason: finishReason,
		}})
	}()

	return s, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return rateLimited("OpenAI rate limit", err)
		}
		if apiErr.HTTPStatusCode >= 500 {
			return unavailable("OpenAI server error", err)
		}
	}
	return unavailable("OpenAI request failed", err)
}
