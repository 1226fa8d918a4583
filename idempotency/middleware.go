package idempotency

import (
	"context"
	"log/slog"

	"github.com/hooklab/dispatch"
)

// MiddlewareOption configures Middleware
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	logger   *slog.Logger
	failOpen bool
}

// WithLogger sets a custom logger for the middleware
func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithFailClosed makes store errors abort the dispatch instead of
// letting the event through. The default is fail-open: a broken store
// should degrade to at-least-once delivery, not drop events.
func WithFailClosed() MiddlewareOption {
	return func(c *middlewareConfig) {
		c.failOpen = false
	}
}

// Middleware drops events whose ID the store has already seen and
// marks new ones as processed once every handler succeeded.
//
// A skipped duplicate is a clean success from the dispatcher's point
// of view, so upstream sources acknowledge the redelivery instead of
// retrying it forever.
//
// Example:
//
//	store := idempotency.NewRedisStore(rdb, 24*time.Hour)
//	router.Use(idempotency.Middleware(store))
func Middleware(store Store, opts ...MiddlewareOption) dispatch.Middleware {
	cfg := &middlewareConfig{
		logger:   slog.Default().With("component", "idempotency"),
		failOpen: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx context.Context, evt *dispatch.Event, next dispatch.Next) error {
		if evt.ID == "" {
			// Nothing to key on, let it through.
			return next()
		}

		dup, err := store.IsDuplicate(ctx, evt.ID)
		if err != nil {
			if !cfg.failOpen {
				return err
			}
			cfg.logger.Warn("idempotency check failed, processing anyway",
				"event", evt.Type, "event_id", evt.ID, "error", err)
			return next()
		}
		if dup {
			cfg.logger.Debug("skipping duplicate event",
				"event", evt.Type, "event_id", evt.ID)
			return nil
		}

		if err := next(); err != nil {
			// Release the claim atomic stores took in IsDuplicate so
			// a redelivery can retry the failed event.
			if rmErr := store.Remove(ctx, evt.ID); rmErr != nil {
				cfg.logger.Warn("failed to release idempotency claim",
					"event", evt.Type, "event_id", evt.ID, "error", rmErr)
			}
			return err
		}

		if err := store.MarkProcessed(ctx, evt.ID); err != nil {
			cfg.logger.Warn("failed to mark event processed",
				"event", evt.Type, "event_id", evt.ID, "error", err)
		}
		return nil
	}
}
