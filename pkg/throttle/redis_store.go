package throttle

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of Redis so counters are shared across
// processes. Every mutation runs as a single Lua script, which makes the
// rollover + check + increment sequence atomic on the server.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the default "usage:" key prefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		if prefix != "" {
			rs.keyPrefix = prefix
		}
	}
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	rs := &RedisStore{
		client:    client,
		keyPrefix: "usage:",
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// incrementScript applies lazy rollover, checks both caps and increments
// both counters when allowed. Caps of -1 mean unlimited.
// Returns {allowed, daily, monthly}.
var incrementScript = redis.NewScript(`
local day = ARGV[1]
local month = ARGV[2]
local dailyCap = tonumber(ARGV[3])
local monthlyCap = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local cur = redis.call('HMGET', KEYS[1], 'd', 'm', 'day', 'mon')
local d = tonumber(cur[1]) or 0
local m = tonumber(cur[2]) or 0
if cur[3] ~= day then d = 0 end
if cur[4] ~= month then m = 0 end

local allowed = 0
if (dailyCap < 0 or d < dailyCap) and (monthlyCap < 0 or m < monthlyCap) then
	d = d + 1
	m = m + 1
	allowed = 1
end

redis.call('HSET', KEYS[1], 'd', d, 'm', m, 'day', day, 'mon', month)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, d, m}
`)

// decrementScript refunds one increment after rollover, flooring at zero.
var decrementScript = redis.NewScript(`
local day = ARGV[1]
local month = ARGV[2]
local ttl = tonumber(ARGV[3])

local cur = redis.call('HMGET', KEYS[1], 'd', 'm', 'day', 'mon')
local d = tonumber(cur[1]) or 0
local m = tonumber(cur[2]) or 0
if cur[3] ~= day then d = 0 end
if cur[4] ~= month then m = 0 end

d = math.max(d - 1, 0)
m = math.max(m - 1, 0)

redis.call('HSET', KEYS[1], 'd', d, 'm', m, 'day', day, 'mon', month)
redis.call('EXPIRE', KEYS[1], ttl)
return {d, m}
`)

func (rs *RedisStore) Increment(ctx context.Context, userID string, dailyCap, monthlyCap int64, now time.Time) (Usage, bool, error) {
	res, err := incrementScript.Run(ctx, rs.client, []string{rs.key(userID)},
		dayKey(now), monthKey(now), dailyCap, monthlyCap, keyTTL(now)).Int64Slice()
	if err != nil {
		return Usage{}, false, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 3 {
		return Usage{}, false, ErrStoreUnavailable
	}

	return Usage{
		Daily:      res[1],
		Monthly:    res[2],
		DayStart:   DayStart(now),
		MonthStart: MonthStart(now),
	}, res[0] == 1, nil
}

func (rs *RedisStore) Usage(ctx context.Context, userID string, now time.Time) (Usage, error) {
	vals, err := rs.client.HMGet(ctx, rs.key(userID), "d", "m", "day", "mon").Result()
	if err != nil {
		return Usage{}, errors.Join(ErrStoreUnavailable, err)
	}

	usage := Usage{DayStart: DayStart(now), MonthStart: MonthStart(now)}
	// Expired periods read as zero; persisted state is untouched.
	if s, ok := vals[3].(string); ok && s == monthKey(now) {
		usage.Monthly = toInt64(vals[1])
	}
	if s, ok := vals[2].(string); ok && s == dayKey(now) {
		usage.Daily = toInt64(vals[0])
	}
	return usage, nil
}

func (rs *RedisStore) Decrement(ctx context.Context, userID string, now time.Time) error {
	if err := decrementScript.Run(ctx, rs.client, []string{rs.key(userID)},
		dayKey(now), monthKey(now), keyTTL(now)).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (rs *RedisStore) Reset(ctx context.Context, userID string) error {
	if err := rs.client.Del(ctx, rs.key(userID)).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (rs *RedisStore) key(userID string) string {
	return rs.keyPrefix + userID
}

func dayKey(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

func monthKey(now time.Time) string {
	return now.UTC().Format("2006-01")
}

// keyTTL keeps keys alive through the current month plus a day of slack,
// after which Redis reclaims them without explicit cleanup.
func keyTTL(now time.Time) int64 {
	return int64(NextMonth(now).Sub(now.UTC())/time.Second) + 86400
}

func toInt64(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
