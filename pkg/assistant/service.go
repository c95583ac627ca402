package assistant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/unpuzzle-ai/usagekit/pkg/plan"
	"github.com/unpuzzle-ai/usagekit/pkg/throttle"
)

// Responder is the strategy behind the facade: fixture mode answers locally
// and deterministically, live mode calls the real backend. Which one is
// injected is decided once at construction, not read from the environment
// at call sites.
type Responder interface {
	Respond(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Guard admits interactions against the user's plan quota. Satisfied by
// *throttle.Service.
type Guard interface {
	Admit(ctx context.Context, userID, planID string, agent plan.Feature) (throttle.Decision, error)
	Refund(ctx context.Context, userID string) error
}

// Service is the single entry point callers use to talk to the AI tutor.
// Both response paths come back through the same (ChatResponse, error)
// shape, so callers never need to know which path executed.
type Service struct {
	guard     Guard
	responder Responder
	log       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger. A silent logger is used by default.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// Errors guarding service construction.
var (
	ErrNilGuard     = errors.New("assistant.errors.nil_guard")
	ErrNilResponder = errors.New("assistant.errors.nil_responder")
)

// NewService creates the facade with the given guard and responder.
func NewService(guard Guard, responder Responder, opts ...ServiceOption) (*Service, error) {
	if guard == nil {
		return nil, ErrNilGuard
	}
	if responder == nil {
		return nil, ErrNilResponder
	}

	s := &Service{
		guard:     guard,
		responder: responder,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SendMessage admits the request against the user's quota, dispatches it to
// the configured responder and returns the canonical reply. A quota denial
// comes back as a *RateLimitError; if the responder is cancelled after the
// admit, the consumed quota slot is refunded so the cancelled request has
// no side effects.
func (s *Service) SendMessage(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if req.UserID == "" {
		return ChatResponse{}, ErrEmptyUserID
	}
	if req.Message == "" {
		return ChatResponse{}, ErrEmptyMessage
	}
	if req.Agent == "" {
		req.Agent = plan.FeatureChat
	}

	d, err := s.guard.Admit(ctx, req.UserID, req.PlanID, req.Agent)
	if err != nil {
		return ChatResponse{}, err
	}
	if !d.Allowed {
		return ChatResponse{}, newRateLimitError(d)
	}

	resp, err := s.responder.Respond(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.refund(ctx, req.UserID)
		}
		return ChatResponse{}, err
	}

	resp.Agent = req.Agent
	resp.RemainingToday = d.RemainingToday
	resp.RemainingMonth = d.RemainingMonth
	return resp, nil
}

// refund returns the admitted slot after a cancelled call. The caller's
// context is already dead, so the refund runs on a detached context with
// its own short deadline.
func (s *Service) refund(ctx context.Context, userID string) {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.guard.Refund(refundCtx, userID); err != nil {
		s.log.ErrorContext(refundCtx, "failed to refund cancelled interaction",
			"user_id", userID, "error", err)
	}
}
