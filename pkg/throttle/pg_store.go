package throttle

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgPool is the subset of pgxpool.Pool the store needs.
type pgPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore implements Store on PostgreSQL for durable counters. Mutations
// take a row lock on the user's counter, so the rollover + check +
// increment sequence is atomic across processes.
type PGStore struct {
	pool pgPool
}

// NewPGStore creates a PostgreSQL-backed counter store. The usage_counters
// table must exist; see migrations/00001_create_usage_counters.sql.
func NewPGStore(pool pgPool) *PGStore {
	return &PGStore{pool: pool}
}

func (ps *PGStore) Increment(ctx context.Context, userID string, dailyCap, monthlyCap int64, now time.Time) (Usage, bool, error) {
	var (
		usage   Usage
		allowed bool
	)

	err := ps.withCounter(ctx, userID, now, func(c *counter) {
		allowed = (dailyCap < 0 || c.daily < dailyCap) &&
			(monthlyCap < 0 || c.monthly < monthlyCap)
		if allowed {
			c.daily++
			c.monthly++
		}
		usage = c.usage()
	})
	if err != nil {
		return Usage{}, false, err
	}
	return usage, allowed, nil
}

func (ps *PGStore) Usage(ctx context.Context, userID string, now time.Time) (Usage, error) {
	var c counter
	err := ps.pool.QueryRow(ctx,
		`SELECT daily_count, monthly_count, day_start, month_start
		 FROM usage_counters WHERE user_id = $1`,
		userID).Scan(&c.daily, &c.monthly, &c.dayStart, &c.monthStart)
	if errors.Is(err, pgx.ErrNoRows) {
		return Usage{DayStart: DayStart(now), MonthStart: MonthStart(now)}, nil
	}
	if err != nil {
		return Usage{}, errors.Join(ErrStoreUnavailable, err)
	}

	// Read-only rollover view: expired periods report zero.
	rollover(&c, now)
	return c.usage(), nil
}

func (ps *PGStore) Decrement(ctx context.Context, userID string, now time.Time) error {
	return ps.withCounter(ctx, userID, now, func(c *counter) {
		c.daily = max(c.daily-1, 0)
		c.monthly = max(c.monthly-1, 0)
	})
}

func (ps *PGStore) Reset(ctx context.Context, userID string) error {
	_, err := ps.pool.Exec(ctx, `DELETE FROM usage_counters WHERE user_id = $1`, userID)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// withCounter runs fn against the user's row-locked counter inside a
// transaction, applying lazy rollover before fn and persisting after.
func (ps *PGStore) withCounter(ctx context.Context, userID string, now time.Time, fn func(*counter)) error {
	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lazily create the row so the FOR UPDATE below always locks something.
	if _, err := tx.Exec(ctx,
		`INSERT INTO usage_counters (user_id, daily_count, monthly_count, day_start, month_start)
		 VALUES ($1, 0, 0, $2, $3)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, DayStart(now), MonthStart(now)); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	var c counter
	if err := tx.QueryRow(ctx,
		`SELECT daily_count, monthly_count, day_start, month_start
		 FROM usage_counters WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&c.daily, &c.monthly, &c.dayStart, &c.monthStart); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	rollover(&c, now)
	fn(&c)

	if _, err := tx.Exec(ctx,
		`UPDATE usage_counters
		 SET daily_count = $2, monthly_count = $3, day_start = $4, month_start = $5, updated_at = now()
		 WHERE user_id = $1`,
		userID, c.daily, c.monthly, c.dayStart, c.monthStart); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
