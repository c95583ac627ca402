package throttle

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/unpuzzle-ai/usagekit/pkg/plan"
)

// IdentityFunc extracts the user and plan identity from a request.
// Returning an empty user ID skips throttling for that request.
type IdentityFunc func(r *http.Request) (userID, planID string)

// RateLimitBody is the wire shape of a denied admission. The same envelope
// is produced by the middleware and decoded by remote clients.
type RateLimitBody struct {
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Code    int              `json:"code"`
	Details RateLimitDetails `json:"details"`
}

// RateLimitDetails carries the admission metadata clients need to render a
// quota state or an upgrade prompt.
type RateLimitDetails struct {
	CanUse          bool      `json:"can_use"`
	Reason          string    `json:"reason"`
	CurrentUsage    int64     `json:"current_usage"`
	DailyLimit      int64     `json:"daily_limit"`
	ResetTime       time.Time `json:"reset_time"`
	UpgradeRequired bool      `json:"upgrade_required"`
	UpgradeMessage  string    `json:"upgrade_message"`
}

// NewRateLimitBody maps a denied Decision into the wire envelope.
func NewRateLimitBody(d Decision) RateLimitBody {
	msg := d.UpgradeMessage
	if msg == "" {
		msg = "Usage limit reached."
	}
	return RateLimitBody{
		Error:   "rate_limit_exceeded",
		Message: msg,
		Code:    http.StatusTooManyRequests,
		Details: RateLimitDetails{
			CanUse:          false,
			Reason:          string(d.Reason),
			CurrentUsage:    d.CurrentUsage,
			DailyLimit:      d.DailyLimit.Int64(),
			ResetTime:       d.ResetAt,
			UpgradeRequired: d.UpgradeRequired,
			UpgradeMessage:  d.UpgradeMessage,
		},
	}
}

// Middleware creates HTTP middleware that admits each request through the
// throttle before the handler runs. Requests proceed when the store is
// unavailable (fail open).
func Middleware(svc *Service, identity IdentityFunc, agent plan.Feature) func(http.Handler) http.Handler {
	if identity == nil {
		panic("throttle.Middleware: identity func is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, planID := identity(r)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			d, err := svc.Admit(r.Context(), userID, planID, agent)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(d.DailyLimit.Int64(), 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.RemainingToday, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				WriteRateLimited(w, d)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteRateLimited writes the 429 envelope for a denied decision.
func WriteRateLimited(w http.ResponseWriter, d Decision) {
	retryAfter := time.Until(d.ResetAt).Seconds()
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(NewRateLimitBody(d))
}
