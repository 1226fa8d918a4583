// Package ratelimit throttles event dispatch.
//
// A burst of webhook deliveries or a broker replay can hammer the
// handlers behind a router. Attaching a Limiter through Middleware
// smooths that flow: each dispatch waits for a token before the
// handlers run.
//
// Two limiters are provided:
//   - TokenBucket: local, in-memory (golang.org/x/time/rate); use for
//     single-instance or per-instance limits
//   - RedisLimiter: fixed-window counter in Redis; use for a global
//     limit shared across instances
//
// Example:
//
//	limiter := ratelimit.NewTokenBucket(100, 10)
//	router.Use(ratelimit.Middleware(limiter))
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/hooklab/dispatch"
)

// Limiter gates event processing. Implementations must be safe for
// concurrent use.
type Limiter interface {
	// Allow reports whether an event may proceed right now, consuming
	// a token when it may. Non-blocking.
	Allow(ctx context.Context) bool

	// Wait blocks until an event may proceed or the context ends.
	// Returns the context error when cancelled.
	Wait(ctx context.Context) error
}

// TokenBucket is a local token bucket limiter.
//
// Tokens refill at rps per second up to burst; each event consumes
// one. No network calls, so it is also the cheapest choice when an
// approximate per-instance limit is enough.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket creates a token bucket allowing rps events per second
// with bursts up to burst.
//
// Example:
//
//	// 100 events/second, bursts of 10
//	limiter := ratelimit.NewTokenBucket(100, 10)
func NewTokenBucket(rps float64, burst int) *TokenBucket {
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Allow reports whether an event may proceed now, consuming a token
// when it may.
func (t *TokenBucket) Allow(ctx context.Context) bool {
	return t.limiter.Allow()
}

// Wait blocks until a token is available or ctx ends.
func (t *TokenBucket) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// SetLimit adjusts the refill rate at runtime, for reacting to
// backpressure or config changes.
func (t *TokenBucket) SetLimit(rps float64) {
	t.limiter.SetLimit(rate.Limit(rps))
}

// SetBurst adjusts the burst size at runtime.
func (t *TokenBucket) SetBurst(burst int) {
	t.limiter.SetBurst(burst)
}

// Middleware makes every dispatch wait for the limiter before the
// chain continues. A cancelled context surfaces as the dispatch error.
//
// Place it after idempotency middleware so duplicate skips do not
// consume tokens.
func Middleware(limiter Limiter) dispatch.Middleware {
	return func(ctx context.Context, evt *dispatch.Event, next dispatch.Next) error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		return next()
	}
}

// Compile-time check
var _ Limiter = (*TokenBucket)(nil)
