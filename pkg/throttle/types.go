package throttle

import (
	"time"

	"github.com/unpuzzle-ai/usagekit/pkg/plan"
)

// Usage holds a user's interaction counters for the current day and month.
// All agent types share the same pair of counters.
type Usage struct {
	Daily      int64
	Monthly    int64
	DayStart   time.Time // UTC midnight opening the current daily window
	MonthStart time.Time // UTC midnight on the 1st opening the current monthly window
}

// DenyReason identifies why an admission was refused.
type DenyReason string

const (
	DenyDailyLimit   DenyReason = "daily_limit_exceeded"
	DenyMonthlyLimit DenyReason = "monthly_limit_exceeded"
	DenyFeature      DenyReason = "feature_unavailable"
)

// Decision is the transient outcome of one admission check. It is never
// persisted; counters only change when Allowed is true.
type Decision struct {
	Allowed bool
	Reason  DenyReason // empty when allowed

	// CurrentUsage is the counter relevant to the outcome: the daily count,
	// or the monthly count when the monthly cap tripped.
	CurrentUsage int64
	DailyLimit   plan.Limit
	MonthlyLimit plan.Limit

	// RemainingToday and RemainingMonth are -1 for unlimited periods.
	RemainingToday int64
	RemainingMonth int64

	// ResetAt is the UTC boundary that unblocks a denied request, or the
	// next daily reset when allowed.
	ResetAt time.Time

	UpgradeRequired bool
	UpgradeMessage  string
}

// Stats is the read-only usage summary exposed to dashboards.
// Limits are -1 for unlimited periods.
type Stats struct {
	UsageToday     int64 `json:"usage_today"`
	LimitToday     int64 `json:"limit_today"`
	UsageThisMonth int64 `json:"usage_this_month"`
	LimitThisMonth int64 `json:"limit_this_month"`
}
