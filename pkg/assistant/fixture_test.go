package assistant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unpuzzle-ai/usagekit/pkg/assistant"
	"github.com/unpuzzle-ai/usagekit/pkg/plan"
)

func TestFixtureResponder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	responder := assistant.NewFixtureResponder()

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		t.Parallel()

		req := assistant.ChatRequest{
			UserID:  "u1",
			Agent:   plan.FeatureChat,
			Message: "hello",
		}

		first, err := responder.Respond(ctx, req)
		require.NoError(t, err)
		second, err := responder.Respond(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.NotEmpty(t, first.ID)
		assert.NotEmpty(t, first.Reply)
	})

	t.Run("different messages can differ", func(t *testing.T) {
		t.Parallel()

		a, err := responder.Respond(ctx, assistant.ChatRequest{Agent: plan.FeatureChat, Message: "hello"})
		require.NoError(t, err)
		b, err := responder.Respond(ctx, assistant.ChatRequest{Agent: plan.FeatureChat, Message: "a different question"})
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("unknown agent falls back to chat replies", func(t *testing.T) {
		t.Parallel()

		resp, err := responder.Respond(ctx, assistant.ChatRequest{Agent: "unknown", Message: "hello"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Reply)
	})

	t.Run("honors cancelled context", func(t *testing.T) {
		t.Parallel()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := responder.Respond(cancelled, assistant.ChatRequest{Agent: plan.FeatureChat, Message: "hello"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
