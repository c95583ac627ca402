package throttle_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unpuzzle-ai/usagekit/pkg/throttle"
)

func newTestStore(t *testing.T) *throttle.MemoryStore {
	t.Helper()

	store := throttle.NewMemoryStore(throttle.WithCleanupInterval(0))
	t.Cleanup(store.Close)
	return store
}

func TestMemoryStoreIncrement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("counts until the daily cap", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		for i := int64(1); i <= 3; i++ {
			usage, ok, err := store.Increment(ctx, "u1", 3, 100, now)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, i, usage.Daily)
			assert.Equal(t, i, usage.Monthly)
		}

		usage, ok, err := store.Increment(ctx, "u1", 3, 100, now)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(3), usage.Daily, "denied increment must not mutate")
	})

	t.Run("monthly cap denies independently", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		_, ok, err := store.Increment(ctx, "u1", 10, 1, now)
		require.NoError(t, err)
		assert.True(t, ok)

		usage, ok, err := store.Increment(ctx, "u1", 10, 1, now)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(1), usage.Monthly)
	})

	t.Run("zero caps always deny", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		usage, ok, err := store.Increment(ctx, "u1", 0, 0, now)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, usage.Daily)
	})

	t.Run("unlimited caps never deny", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		for range 1000 {
			_, ok, err := store.Increment(ctx, "u1", -1, -1, now)
			require.NoError(t, err)
			require.True(t, ok)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := store.Increment(cancelled, "u1", 3, 100, now)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoryStoreRollover(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	day1 := time.Date(2026, 3, 15, 23, 50, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 16, 0, 10, 0, 0, time.UTC)
	nextMonth := time.Date(2026, 4, 1, 0, 10, 0, 0, time.UTC)

	t.Run("day boundary resets daily only", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		for range 3 {
			_, ok, err := store.Increment(ctx, "u1", 3, 100, day1)
			require.NoError(t, err)
			require.True(t, ok)
		}

		usage, ok, err := store.Increment(ctx, "u1", 3, 100, day2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(1), usage.Daily, "daily resets across the day boundary")
		assert.Equal(t, int64(4), usage.Monthly, "monthly persists across the day boundary")
	})

	t.Run("month boundary resets both", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		for range 3 {
			_, ok, err := store.Increment(ctx, "u1", 3, 100, day1)
			require.NoError(t, err)
			require.True(t, ok)
		}

		usage, ok, err := store.Increment(ctx, "u1", 3, 100, nextMonth)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(1), usage.Daily)
		assert.Equal(t, int64(1), usage.Monthly)
	})

	t.Run("rollover is idempotent within a day", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		_, _, err := store.Increment(ctx, "u1", 10, 100, day2)
		require.NoError(t, err)
		usage, _, err := store.Increment(ctx, "u1", 10, 100, day2)
		require.NoError(t, err)

		assert.Equal(t, int64(2), usage.Daily, "same-instant calls differ by exactly one increment")
	})

	t.Run("usage read does not persist rollover", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		_, _, err := store.Increment(ctx, "u1", 10, 100, day1)
		require.NoError(t, err)

		view, err := store.Usage(ctx, "u1", day2)
		require.NoError(t, err)
		assert.Zero(t, view.Daily)
		assert.Equal(t, int64(1), view.Monthly)

		// The stored state still reflects day1 until a mutation at day2.
		view, err = store.Usage(ctx, "u1", day1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), view.Daily)
	})
}

func TestMemoryStoreDecrement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("refunds one increment", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		_, _, err := store.Increment(ctx, "u1", 3, 100, now)
		require.NoError(t, err)

		require.NoError(t, store.Decrement(ctx, "u1", now))

		usage, err := store.Usage(ctx, "u1", now)
		require.NoError(t, err)
		assert.Zero(t, usage.Daily)
		assert.Zero(t, usage.Monthly)
	})

	t.Run("floors at zero", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		require.NoError(t, store.Decrement(ctx, "u1", now))
		require.NoError(t, store.Decrement(ctx, "u1", now))

		usage, err := store.Usage(ctx, "u1", now)
		require.NoError(t, err)
		assert.Zero(t, usage.Daily)
	})
}

func TestMemoryStoreReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	store := newTestStore(t)
	_, _, err := store.Increment(ctx, "u1", 3, 100, now)
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx, "u1"))

	usage, err := store.Usage(ctx, "u1", now)
	require.NoError(t, err)
	assert.Zero(t, usage.Daily)
	assert.Zero(t, usage.Monthly)
}

func TestMemoryStoreConcurrentIncrement(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping race test in short mode")
	}

	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	store := newTestStore(t)

	const limit = 50
	goroutines := 20
	perGoroutine := 10

	var wg sync.WaitGroup
	wg.Add(goroutines)

	var allowed atomic.Int64
	for range goroutines {
		go func() {
			defer wg.Done()
			for range perGoroutine {
				if _, ok, err := store.Increment(ctx, "shared", limit, 1000, now); err == nil && ok {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), allowed.Load(), "concurrent admits must never overshoot the cap")

	usage, err := store.Usage(ctx, "shared", now)
	require.NoError(t, err)
	assert.Equal(t, int64(limit), usage.Daily)
}
