package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-ai/interview-platform/internal/model"
)

func sseServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	}))
}

func history() []model.ChatMessage {
	return []model.ChatMessage{
		{Role: "system", Content: "You are helpful."},
		{Role: "user", Content: "hello"},
	}
}

func TestChatAPICompleteOnce(t *testing.T) {
	t.Run("decodes the response body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.False(t, req.Stream)
			assert.Len(t, req.Messages, 2)

			json.NewEncoder(w).Encode(chatResponse{
				Content:          "hi there",
				Model:            "gpt-4o",
				TokensUsed:       12,
				ProcessingTimeMs: 80,
				FinishReason:     "stop",
			})
		}))
		defer srv.Close()

		c := NewChatAPIClient(srv.URL, 5*time.Second)
		comp, err := c.CompleteOnce(context.Background(), history(), Options{Model: "gpt-4o"})
		require.NoError(t, err)

		assert.Equal(t, "hi there", comp.Content)
		assert.Equal(t, "gpt-4o", comp.Model)
		assert.Equal(t, 12, comp.TokensUsed)
		assert.Equal(t, int64(80), comp.LatencyMs)
	})

	t.Run("429 classifies as rate limited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewChatAPIClient(srv.URL, 5*time.Second)
		_, err := c.CompleteOnce(context.Background(), history(), Options{})
		assert.Equal(t, KindRateLimited, KindOf(err))
	})

	t.Run("5xx classifies as unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := NewChatAPIClient(srv.URL, 5*time.Second)
		_, err := c.CompleteOnce(context.Background(), history(), Options{})
		assert.Equal(t, KindUnavailable, KindOf(err))
	})

	t.Run("unreachable host classifies as unavailable", func(t *testing.T) {
		c := NewChatAPIClient("http://127.0.0.1:1", time.Second)
		_, err := c.CompleteOnce(context.Background(), history(), Options{})
		assert.Equal(t, KindUnavailable, KindOf(err))
	})

	t.Run("out-of-range temperature is omitted from the request", func(t *testing.T) {
		req := buildRequest(history(), Options{Temperature: 3.5, MaxTokens: -1}, false)
		assert.Nil(t, req.Temperature)
		assert.Zero(t, req.MaxTokens)
	})
}

func TestChatAPICompleteStream(t *testing.T) {
	t.Run("cumulative deltas then done", func(t *testing.T) {
		srv := sseServer(t,
			`data: {"type":"content","full_content":"Hel"}`,
			`data: {"type":"content","full_content":"Hello"}`,
			`data: {"type":"content","full_content":"Hello world"}`,
			`data: {"type":"completed","content":"Hello world","tokens_used":7,"processing_time_ms":42}`,
			`data: [DONE]`,
		)
		defer srv.Close()

		c := NewChatAPIClient(srv.URL, 5*time.Second)
		stream, err := c.CompleteStream(context.Background(), history(), Options{})
		require.NoError(t, err)

		var deltas []string
		comp, err := stream.Collect(func(textSoFar string, index int) error {
			deltas = append(deltas, textSoFar)
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"Hel", "Hello", "Hello world"}, deltas)
		assert.Equal(t, "Hello world", comp.Content)
		assert.Equal(t, 7, comp.TokensUsed)
		assert.Equal(t, int64(42), comp.LatencyMs)

		// Prefix-extension property over the whole sequence.
		for i := 1; i < len(deltas); i++ {
			assert.True(t, len(deltas[i]) >= len(deltas[i-1]))
			assert.Equal(t, deltas[i-1], deltas[i][:len(deltas[i-1])])
		}
		assert.Equal(t, comp.Content, deltas[len(deltas)-1])
	})

	t.Run("text regression is a malformed stream", func(t *testing.T) {
		srv := sseServer(t,
			`data: {"type":"content","full_content":"Hello"}`,
			`data: {"type":"content","full_content":"Hel"}`,
		)
		defer srv.Close()

		c := NewChatAPIClient(srv.URL, 5*time.Second)
		stream, err := c.CompleteStream(context.Background(), history(), Options{})
		require.NoError(t, err)

		_, err = stream.Collect(nil)
		assert.Equal(t, KindMalformedStream, KindOf(err))
	})

	t.Run("unparsable chunk is a malformed stream", func(t *testing.T) {
		srv := sseServer(t, `data: {not json`)
		defer srv.Close()

		c := NewChatAPIClient(srv.URL, 5*time.Second)
		stream, err := c.CompleteStream(context.Background(), history(), Options{})
		require.NoError(t, err)

		_, err = stream.Collect(nil)
		assert.Equal(t, KindMalformedStream, KindOf(err))
	})

	t.Run("unknown chunk type is a malformed stream", func(t *testing.T) {
		srv := sseServer(t, `data: {"type":"surprise"}`)
		defer srv.Close()

		c := NewChatAPIClient(srv.URL, 5*time.Second)
		stream, err := c.CompleteStream(context.Background(), history(), Options{})
		require.NoError(t, err)

		_, err = stream.Collect(nil)
		assert.Equal(t, KindMalformedStream, KindOf(err))
	})

	t.Run("error chunk terminates as unavailable", func(t *testing.T) {
		srv := sseServer(t,
			`data: {"type":"content","full_content":"partial"}`,
			`data: {"type":"error","error":"model overloaded"}`,
		)
		defer srv.Close()

		c := NewChatAPIClient(srv.URL, 5*time.Second)
		stream, err := c.CompleteStream(context.Background(), history(), Options{})
		require.NoError(t, err)

		_, err = stream.Collect(nil)
		assert.Equal(t, KindUnavailable, KindOf(err))
		assert.Contains(t, err.Error(), "model overloaded")
	})

	t.Run("sentinel without terminal event is a malformed stream", func(t *testing.T) {
		srv := sseServer(t,
			`data: {"type":"content","full_content":"partial"}`,
			`data: [DONE]`,
		)
		defer srv.Close()

		c := NewChatAPIClient(srv.URL, 5*time.Second)
		stream, err := c.CompleteStream(context.Background(), history(), Options{})
		require.NoError(t, err)

		_, err = stream.Collect(nil)
		assert.Equal(t, KindMalformedStream, KindOf(err))
	})

	t.Run("completed without content falls back to last delta", func(t *testing.T) {
		srv := sseServer(t,
			`data: {"type":"content","full_content":"the answer"}`,
			`data: {"type":"completed","tokens_used":3}`,
		)
		defer srv.Close()

		c := NewChatAPIClient(srv.URL, 5*time.Second)
		stream, err := c.CompleteStream(context.Background(), history(), Options{})
		require.NoError(t, err)

		comp, err := stream.Collect(nil)
		require.NoError(t, err)
		assert.Equal(t, "the answer", comp.Content)
	})

	t.Run("429 on the streaming request classifies before any event", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewChatAPIClient(srv.URL, 5*time.Second)
		_, err := c.CompleteStream(context.Background(), history(), Options{})
		assert.Equal(t, KindRateLimited, KindOf(err))
	})
}
