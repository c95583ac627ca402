package throttle

import (
	"context"
	"time"
)

// Store defines the interface for usage counter storage backends.
//
// Implementations must make Increment atomic: the rollover, the limit
// comparison and the increment happen as one operation, so two concurrent
// admits cannot both pass the check before either increments.
type Store interface {
	// Increment applies lazy rollover for the boundaries at now, checks both
	// caps and, if both allow, increments the daily and monthly counters by
	// one. Caps use -1 for unlimited; a cap of 0 always denies.
	// Returns the post-operation usage and whether the increment happened.
	Increment(ctx context.Context, userID string, dailyCap, monthlyCap int64, now time.Time) (Usage, bool, error)

	// Usage returns the counters as seen at now, with expired periods read
	// as zero. It never mutates state.
	Usage(ctx context.Context, userID string, now time.Time) (Usage, error)

	// Decrement undoes one accepted increment, flooring both counters at
	// zero. Used to refund an admit whose downstream call was cancelled.
	Decrement(ctx context.Context, userID string, now time.Time) error

	// Reset removes all counter state for the user.
	Reset(ctx context.Context, userID string) error
}
