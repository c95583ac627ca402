package throttle

import (
	"context"
	"sync"
	"time"
)

// counter holds one user's in-memory usage state.
type counter struct {
	daily      int64
	monthly    int64
	dayStart   time.Time
	monthStart time.Time
	lastAccess time.Time // Used by cleanup to identify stale counters
}

// MemoryStore implements Store using in-memory storage. Suitable for a
// single process; use RedisStore or PGStore when counters must be shared.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets the cleanup interval for removing stale counters.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// NewMemoryStore creates a new in-memory store with optional cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		counters:        make(map[string]*counter),
		cleanupInterval: time.Hour,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

// Increment atomically rolls over expired periods, checks both caps and
// increments on success. The whole operation runs under the store mutex.
func (ms *MemoryStore) Increment(ctx context.Context, userID string, dailyCap, monthlyCap int64, now time.Time) (Usage, bool, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, false, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	c := ms.fetch(userID, now)
	rollover(c, now)

	allowed := (dailyCap < 0 || c.daily < dailyCap) &&
		(monthlyCap < 0 || c.monthly < monthlyCap)
	if allowed {
		c.daily++
		c.monthly++
	}
	c.lastAccess = now

	return c.usage(), allowed, nil
}

// Usage returns the counters as seen at now without mutating stored state.
func (ms *MemoryStore) Usage(ctx context.Context, userID string, now time.Time) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	c, exists := ms.counters[userID]
	if !exists {
		return Usage{DayStart: DayStart(now), MonthStart: MonthStart(now)}, nil
	}

	// Read-only rollover view: expired periods report zero.
	view := *c
	rollover(&view, now)
	return view.usage(), nil
}

// Decrement undoes one accepted increment, flooring at zero.
func (ms *MemoryStore) Decrement(ctx context.Context, userID string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	c, exists := ms.counters[userID]
	if !exists {
		return nil
	}

	rollover(c, now)
	c.daily = max(c.daily-1, 0)
	c.monthly = max(c.monthly-1, 0)
	c.lastAccess = now
	return nil
}

// Reset removes all counter state for the user.
func (ms *MemoryStore) Reset(ctx context.Context, userID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.counters, userID)
	return nil
}

// fetch returns the user's counter, creating it lazily on first use.
// Caller must hold the mutex.
func (ms *MemoryStore) fetch(userID string, now time.Time) *counter {
	c, exists := ms.counters[userID]
	if !exists {
		c = &counter{
			dayStart:   DayStart(now),
			monthStart: MonthStart(now),
			lastAccess: now,
		}
		ms.counters[userID] = c
	}
	return c
}

// rollover zeroes counters whose period boundary has passed. Applied on
// every access; there is no background timer. A daily rollover keeps the
// monthly count, a monthly rollover clears both boundaries independently.
func rollover(c *counter, now time.Time) {
	if ds := DayStart(now); c.dayStart.Before(ds) {
		c.daily = 0
		c.dayStart = ds
	}
	if ms := MonthStart(now); c.monthStart.Before(ms) {
		c.monthly = 0
		c.monthStart = ms
	}
}

func (c *counter) usage() Usage {
	return Usage{
		Daily:      c.daily,
		Monthly:    c.monthly,
		DayStart:   c.dayStart,
		MonthStart: c.monthStart,
	}
}

// cleanup runs periodically to remove stale counters.
func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeStale()
		case <-ms.stopCleanup:
			return
		}
	}
}

// removeStale drops counters idle for more than a full monthly window, so an
// active month is never evicted while it still matters.
func (ms *MemoryStore) removeStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	staleThreshold := 32 * 24 * time.Hour

	for key, c := range ms.counters {
		if now.Sub(c.lastAccess) > staleThreshold {
			delete(ms.counters, key)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() {
	select {
	case <-ms.stopCleanup:
		// Already closed
	default:
		close(ms.stopCleanup)
	}
}
