package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/guided-ai/interview-platform/internal/model"
)

// ChatAPIClient speaks the completion provider's /chat wire protocol:
// a JSON POST for single-shot calls, and the same endpoint with stream=true
// returning a server-sent-event stream of cumulative-content chunks
// terminated by a literal "data: [DONE]" line.
type ChatAPIClient struct {
	baseURL string
	http    *http.Client
}

// NewChatAPIClient creates a client for the /chat completion endpoint.
func NewChatAPIClient(baseURL string, timeout time.Duration) *ChatAPIClient {
	return &ChatAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (c *ChatAPIClient) Name() string {
	return "chat-api"
}

// Models returns the models the provider advertises. The /chat protocol does
// not expose discovery, so this lists the documented defaults.
func (c *ChatAPIClient) Models() []string {
	return []string{"gpt-4o", "gpt-4", "gpt-3.5-turbo"}
}

type chatRequest struct {
	Messages    []model.ChatMessage `json:"messages"`
	Model       string              `json:"model,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
}

type chatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	TokensUsed       int    `json:"tokens_used"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	FinishReason     string `json:"finish_reason"`
}

type chatChunk struct {
	Type             string `json:"type"`
	FullContent      string `json:"full_content"`
	Content          string `json:"content"`
	TokensUsed       int    `json:"tokens_used"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	Error            string `json:"error"`
}

func buildRequest(history []model.ChatMessage, opts Options, stream bool) *chatRequest {
	req := &chatRequest{
		Messages: history,
		Model:    opts.Model,
		Stream:   stream,
	}
	// Out-of-range options are omitted so the provider applies its defaults.
	if opts.Temperature > 0 && opts.Temperature <= 2.0 {
		t := opts.Temperature
		req.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	return req
}

// CompleteOnce performs a single blocking round trip against /chat.
func (c *ChatAPIClient) CompleteOnce(ctx context.Context, history []model.ChatMessage, opts Options) (*Completion, error) {
	start := time.Now()

	resp, err := c.post(ctx, buildRequest(history, opts, false), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, unavailable("decoding completion response", err)
	}

	latency := body.ProcessingTimeMs
	if latency == 0 {
		latency = time.Since(start).Milliseconds()
	}

	return &Completion{
		Content:      body.Content,
		Model:        body.Model,
		TokensUsed:   body.TokensUsed,
		LatencyMs:    latency,
		FinishReason: body.FinishReason,
	}, nil
}

// CompleteStream starts a streaming completion. The returned stream yields
// delta events carrying the cumulative text (each a prefix-extension of the
// previous one) and exactly one terminal event.
func (c *ChatAPIClient) CompleteStream(ctx context.Context, history []model.ChatMessage, opts Options) (*Stream, error) {
	start := time.Now()

	resp, err := c.post(ctx, buildRequest(history, opts, true), "text/event-stream")
	if err != nil {
		return nil, err
	}

	s := newStream()
	go c.consume(ctx, resp.Body, s, start)
	return s, nil
}

func (c *ChatAPIClient) post(ctx context.Context, body *chatRequest, accept string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, unavailable("encoding completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, unavailable("building completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unavailable("completion provider unreachable", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, rateLimited("completion provider rate limit", nil)
	default:
		resp.Body.Close()
		return nil, unavailable(fmt.Sprintf("completion provider returned %d", resp.StatusCode), nil)
	}
}

// consume reads the SSE body and forwards normalized events until the
// terminal event, the [DONE] sentinel, or consumer abandonment.
func (c *ChatAPIClient) consume(ctx context.Context, body io.ReadCloser, s *Stream, start time.Time) {
	defer body.Close()
	defer s.finish()

	var lastText string
	terminal := false

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			s.send(ctx, Event{Type: EventError, Err: malformed("unparsable stream chunk", err)})
			return
		}

		switch chunk.Type {
		case "content":
			// Each chunk carries the cumulative text; a regression would be
			// a disjoint edit, which the contract forbids.
			if !strings.HasPrefix(chunk.FullContent, lastText) {
				s.send(ctx, Event{Type: EventError, Err: malformed("stream text is not a prefix extension", nil)})
				return
			}
			lastText = chunk.FullContent
			if !s.send(ctx, Event{Type: EventDelta, TextSoFar: lastText}) {
				return
			}

		case "completed":
			content := chunk.Content
			if content == "" {
				content = lastText
			}
			latency := chunk.ProcessingTimeMs
			if latency == 0 {
				latency = time.Since(start).Milliseconds()
			}
			s.send(ctx, Event{Type: EventDone, Completion: &Completion{
				Content:      content,
				TokensUsed:   chunk.TokensUsed,
				LatencyMs:    latency,
				FinishReason: "stop",
			}})
			terminal = true

		case "error":
			s.send(ctx, Event{Type: EventError, Err: unavailable(chunk.Error, nil)})
			terminal = true

		default:
			s.send(ctx, Event{Type: EventError, Err: malformed("unknown stream chunk type "+chunk.Type, nil)})
			return
		}

		if terminal {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.send(ctx, Event{Type: EventError, Err: unavailable("reading completion stream", err)})
		return
	}
	if !terminal {
		s.send(ctx, Event{Type: EventError, Err: malformed("stream ended without a terminal event", nil)})
	}
}
