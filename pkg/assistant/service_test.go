package assistant_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unpuzzle-ai/usagekit/pkg/assistant"
	"github.com/unpuzzle-ai/usagekit/pkg/plan"
	"github.com/unpuzzle-ai/usagekit/pkg/throttle"
)

// stubGuard records admissions and refunds.
type stubGuard struct {
	decision throttle.Decision
	admitErr error
	admits   atomic.Int64
	refunds  atomic.Int64
}

func (g *stubGuard) Admit(ctx context.Context, userID, planID string, agent plan.Feature) (throttle.Decision, error) {
	g.admits.Add(1)
	return g.decision, g.admitErr
}

func (g *stubGuard) Refund(ctx context.Context, userID string) error {
	g.refunds.Add(1)
	return nil
}

// stubResponder returns a fixed response or error.
type stubResponder struct {
	resp  assistant.ChatResponse
	err   error
	calls atomic.Int64
}

func (r *stubResponder) Respond(ctx context.Context, req assistant.ChatRequest) (assistant.ChatResponse, error) {
	r.calls.Add(1)
	return r.resp, r.err
}

func allowDecision() throttle.Decision {
	return throttle.Decision{
		Allowed:        true,
		RemainingToday: 2,
		RemainingMonth: 42,
	}
}

func denyDecision() throttle.Decision {
	return throttle.Decision{
		Allowed:         false,
		Reason:          throttle.DenyDailyLimit,
		CurrentUsage:    3,
		DailyLimit:      3,
		ResetAt:         time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		UpgradeRequired: true,
		UpgradeMessage:  "Upgrade to Pro for higher limits.",
	}
}

func TestNewAssistantService(t *testing.T) {
	t.Parallel()

	t.Run("nil guard", func(t *testing.T) {
		t.Parallel()

		_, err := assistant.NewService(nil, &stubResponder{})
		assert.ErrorIs(t, err, assistant.ErrNilGuard)
	})

	t.Run("nil responder", func(t *testing.T) {
		t.Parallel()

		_, err := assistant.NewService(&stubGuard{}, nil)
		assert.ErrorIs(t, err, assistant.ErrNilResponder)
	})
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	req := assistant.ChatRequest{UserID: "u1", PlanID: plan.PlanFree, Agent: plan.FeatureChat, Message: "hello"}

	t.Run("allowed request reaches the responder", func(t *testing.T) {
		t.Parallel()

		guard := &stubGuard{decision: allowDecision()}
		responder := &stubResponder{resp: assistant.ChatResponse{ID: "msg-1", Reply: "hi"}}
		svc, err := assistant.NewService(guard, responder)
		require.NoError(t, err)

		resp, err := svc.SendMessage(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "msg-1", resp.ID)
		assert.Equal(t, plan.FeatureChat, resp.Agent)
		assert.Equal(t, int64(2), resp.RemainingToday)
		assert.Equal(t, int64(42), resp.RemainingMonth)
		assert.Equal(t, int64(1), guard.admits.Load())
		assert.Equal(t, int64(1), responder.calls.Load())
	})

	t.Run("denied request never reaches the responder", func(t *testing.T) {
		t.Parallel()

		guard := &stubGuard{decision: denyDecision()}
		responder := &stubResponder{}
		svc, err := assistant.NewService(guard, responder)
		require.NoError(t, err)

		_, err = svc.SendMessage(ctx, req)
		require.Error(t, err)

		var rle *assistant.RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.ErrorIs(t, err, assistant.ErrRateLimited)
		assert.Equal(t, "daily_limit_exceeded", rle.Details.Reason)
		assert.Equal(t, int64(3), rle.Details.CurrentUsage)
		assert.Zero(t, responder.calls.Load())
	})

	t.Run("guard error propagates", func(t *testing.T) {
		t.Parallel()

		guard := &stubGuard{admitErr: throttle.ErrStoreUnavailable}
		svc, err := assistant.NewService(guard, &stubResponder{})
		require.NoError(t, err)

		_, err = svc.SendMessage(ctx, req)
		assert.ErrorIs(t, err, throttle.ErrStoreUnavailable)
	})

	t.Run("cancelled responder triggers a refund", func(t *testing.T) {
		t.Parallel()

		guard := &stubGuard{decision: allowDecision()}
		responder := &stubResponder{err: errors.Join(assistant.ErrTransport, context.Canceled)}
		svc, err := assistant.NewService(guard, responder)
		require.NoError(t, err)

		_, err = svc.SendMessage(ctx, req)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int64(1), guard.refunds.Load())
	})

	t.Run("transport failure without cancellation keeps the charge", func(t *testing.T) {
		t.Parallel()

		guard := &stubGuard{decision: allowDecision()}
		responder := &stubResponder{err: assistant.ErrTransport}
		svc, err := assistant.NewService(guard, responder)
		require.NoError(t, err)

		_, err = svc.SendMessage(ctx, req)
		assert.ErrorIs(t, err, assistant.ErrTransport)
		assert.Zero(t, guard.refunds.Load())
	})

	t.Run("defaults the agent to chat", func(t *testing.T) {
		t.Parallel()

		guard := &stubGuard{decision: allowDecision()}
		responder := &stubResponder{resp: assistant.ChatResponse{ID: "msg-1"}}
		svc, err := assistant.NewService(guard, responder)
		require.NoError(t, err)

		resp, err := svc.SendMessage(ctx, assistant.ChatRequest{UserID: "u1", Message: "hello"})
		require.NoError(t, err)
		assert.Equal(t, plan.FeatureChat, resp.Agent)
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()

		svc, err := assistant.NewService(&stubGuard{}, &stubResponder{})
		require.NoError(t, err)

		_, err = svc.SendMessage(ctx, assistant.ChatRequest{Message: "hello"})
		assert.ErrorIs(t, err, assistant.ErrEmptyUserID)

		_, err = svc.SendMessage(ctx, assistant.ChatRequest{UserID: "u1"})
		assert.ErrorIs(t, err, assistant.ErrEmptyMessage)
	})
}
