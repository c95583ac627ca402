package throttle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/unpuzzle-ai/usagekit/pkg/plan"
)

// Service decides whether a user's AI interaction is admitted against the
// quota of their subscription plan.
type Service struct {
	catalog *plan.Catalog
	store   Store
	log     *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. A silent logger is used by default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a throttle Service backed by the given catalog and store.
func NewService(catalog *plan.Catalog, store Store, opts ...Option) (*Service, error) {
	if catalog == nil {
		return nil, ErrNilCatalog
	}
	if store == nil {
		return nil, ErrNilStore
	}

	s := &Service{
		catalog: catalog,
		store:   store,
		log:     slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Admit checks whether one more AI interaction is permitted for the user and,
// if so, counts it. Counters are only mutated on an allow; a deny of any kind
// leaves them untouched. Unknown plan IDs fall back to the free tier rather
// than failing, so a bad plan value in a user record degrades service
// instead of denying it.
func (s *Service) Admit(ctx context.Context, userID, planID string, agent plan.Feature) (Decision, error) {
	if userID == "" {
		return Decision{}, ErrEmptyUserID
	}

	p, err := s.catalog.LimitsFor(planID)
	if err != nil {
		s.log.WarnContext(ctx, "unknown plan, falling back to free tier",
			"plan_id", planID, "user_id", userID)
	}

	now := s.now()

	if !p.HasFeature(agent) {
		return s.denyFeature(ctx, userID, p, agent, now), nil
	}

	usage, ok, err := s.store.Increment(ctx, userID, p.DailyLimit.Int64(), p.MonthlyLimit.Int64(), now)
	if err != nil {
		return Decision{}, errors.Join(ErrStoreUnavailable, err)
	}

	if !ok {
		return s.denyLimit(p, usage, now), nil
	}

	return Decision{
		Allowed:        true,
		CurrentUsage:   usage.Daily,
		DailyLimit:     p.DailyLimit,
		MonthlyLimit:   p.MonthlyLimit,
		RemainingToday: remaining(p.DailyLimit, usage.Daily),
		RemainingMonth: remaining(p.MonthlyLimit, usage.Monthly),
		ResetAt:        NextDay(now),
	}, nil
}

// Stats returns the read-only usage summary for dashboards. It never
// mutates counters.
func (s *Service) Stats(ctx context.Context, userID, planID string) (Stats, error) {
	if userID == "" {
		return Stats{}, ErrEmptyUserID
	}

	p, err := s.catalog.LimitsFor(planID)
	if err != nil {
		s.log.WarnContext(ctx, "unknown plan, falling back to free tier",
			"plan_id", planID, "user_id", userID)
	}

	usage, err := s.store.Usage(ctx, userID, s.now())
	if err != nil {
		return Stats{}, errors.Join(ErrStoreUnavailable, err)
	}

	return Stats{
		UsageToday:     usage.Daily,
		LimitToday:     p.DailyLimit.Int64(),
		UsageThisMonth: usage.Monthly,
		LimitThisMonth: p.MonthlyLimit.Int64(),
	}, nil
}

// Refund undoes one admitted interaction, flooring counters at zero. Callers
// use it when the downstream call an admit paid for was cancelled before
// completing, so the cancelled request leaves no trace in the counters.
func (s *Service) Refund(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if err := s.store.Decrement(ctx, userID, s.now()); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// denyFeature builds the decision for an agent type the plan does not
// enable. The counter store is only read, never written.
func (s *Service) denyFeature(ctx context.Context, userID string, p plan.Plan, agent plan.Feature, now time.Time) Decision {
	var usage Usage
	if u, err := s.store.Usage(ctx, userID, now); err == nil {
		usage = u
	} else {
		s.log.DebugContext(ctx, "usage read failed during feature deny",
			"user_id", userID, "error", err)
	}

	msg := ""
	if p.UpgradeTo != "" {
		msg = fmt.Sprintf("The %s assistant isn't available on the %s plan. Upgrade to %s to unlock it.",
			agent, p.Name, upgradeName(s.catalog, p.UpgradeTo))
	}

	return Decision{
		Allowed:         false,
		Reason:          DenyFeature,
		CurrentUsage:    usage.Daily,
		DailyLimit:      p.DailyLimit,
		MonthlyLimit:    p.MonthlyLimit,
		RemainingToday:  remaining(p.DailyLimit, usage.Daily),
		RemainingMonth:  remaining(p.MonthlyLimit, usage.Monthly),
		ResetAt:         NextDay(now),
		UpgradeRequired: p.UpgradeTo != "",
		UpgradeMessage:  msg,
	}
}

// denyLimit builds the decision for a tripped cap. The daily cap is reported
// first when both are exhausted.
func (s *Service) denyLimit(p plan.Plan, usage Usage, now time.Time) Decision {
	d := Decision{
		Allowed:         false,
		DailyLimit:      p.DailyLimit,
		MonthlyLimit:    p.MonthlyLimit,
		RemainingToday:  remaining(p.DailyLimit, usage.Daily),
		RemainingMonth:  remaining(p.MonthlyLimit, usage.Monthly),
		UpgradeRequired: p.UpgradeTo != "",
	}

	var period string
	if !p.DailyLimit.Allows(usage.Daily) {
		d.Reason = DenyDailyLimit
		d.CurrentUsage = usage.Daily
		d.ResetAt = NextDay(now)
		period = "daily"
	} else {
		d.Reason = DenyMonthlyLimit
		d.CurrentUsage = usage.Monthly
		d.ResetAt = NextMonth(now)
		period = "monthly"
	}

	if d.UpgradeRequired {
		d.UpgradeMessage = fmt.Sprintf("You've reached your %s limit on the %s plan. Upgrade to %s for higher limits.",
			period, p.Name, upgradeName(s.catalog, p.UpgradeTo))
	}
	return d
}

// remaining returns the allowance left for a period, -1 for unlimited.
func remaining(l plan.Limit, current int64) int64 {
	if l.IsUnlimited() {
		return -1
	}
	return max(l.Int64()-current, 0)
}

func upgradeName(c *plan.Catalog, planID string) string {
	if p, err := c.LimitsFor(planID); err == nil {
		return p.Name
	}
	return planID
}
