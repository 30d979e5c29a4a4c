package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-ai/interview-platform/internal/model"
)

func TestDemoClient(t *testing.T) {
	c := NewDemoClient()

	t.Run("single shot reply is clearly labeled", func(t *testing.T) {
		comp, err := c.CompleteOnce(context.Background(), []model.ChatMessage{
			{Role: "user", Content: "tell me about my project plan"},
		}, Options{})
		require.NoError(t, err)

		assert.Equal(t, DemoModel, comp.Model)
		assert.True(t, strings.HasPrefix(comp.Content, "This is a demo reply"))
		assert.Contains(t, comp.Content, "project")
	})

	t.Run("streamed reply grows by prefix extension", func(t *testing.T) {
		stream, err := c.CompleteStream(context.Background(), []model.ChatMessage{
			{Role: "user", Content: "hello"},
		}, Options{})
		require.NoError(t, err)

		var last string
		comp, err := stream.Collect(func(textSoFar string, index int) error {
			require.True(t, strings.HasPrefix(textSoFar, last))
			last = textSoFar
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, last, comp.Content)
		assert.Equal(t, DemoModel, comp.Model)
	})

	t.Run("empty history still yields a reply", func(t *testing.T) {
		comp, err := c.CompleteOnce(context.Background(), nil, Options{})
		require.NoError(t, err)
		assert.NotEmpty(t, comp.Content)
	})
}
