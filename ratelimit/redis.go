package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixed-window increment: first INCR in a window sets its expiry
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
	return 0
end
return 1
`)

// RedisLimiter is a distributed fixed-window limiter on Redis
// counters. All instances sharing the same key share one allowance.
//
// Fixed windows can admit up to twice the limit across a window
// boundary; acceptable for throttling event processing, where the
// limit is a safety valve rather than a contract.
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	limiter := ratelimit.NewRedisLimiter(rdb, "billing-events", 500, time.Second)
//	router.Use(ratelimit.Middleware(limiter))
type RedisLimiter struct {
	client redis.Cmdable
	key    string
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter admitting limit events per window,
// counted under "ratelimit:"+key.
func NewRedisLimiter(client redis.Cmdable, key string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		key:    "ratelimit:" + key,
		limit:  limit,
		window: window,
	}
}

// Allow atomically increments the window counter and reports whether
// the limit still holds. Fails open on Redis errors so a broken Redis
// throttles nothing rather than everything.
func (r *RedisLimiter) Allow(ctx context.Context) bool {
	seconds := int(r.window.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	result, err := fixedWindowScript.Run(ctx, r.client,
		[]string{r.key}, r.limit, seconds).Int()
	if err != nil {
		return true
	}
	return result == 1
}

// Wait polls Allow until it admits the event or ctx ends. The poll
// interval is the average token spacing for the configured rate.
func (r *RedisLimiter) Wait(ctx context.Context) error {
	if r.Allow(ctx) {
		return nil
	}

	interval := r.window / time.Duration(r.limit)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.Allow(ctx) {
				return nil
			}
		}
	}
}

// Reset clears the current window counter. Intended for tests and
// manual intervention.
func (r *RedisLimiter) Reset(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

// Compile-time check
var _ Limiter = (*RedisLimiter)(nil)
