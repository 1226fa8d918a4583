// Package idempotency suppresses duplicate event deliveries.
//
// Webhook providers and message brokers deliver at-least-once: the same
// event can arrive twice after a retry, a redeploy, or a network blip.
// This package tracks processed event IDs in a pluggable store and
// offers a middleware that drops an event whose ID was already seen.
//
// # Basic Usage
//
//	store := idempotency.NewMemoryStore(time.Hour)
//	defer store.Close()
//
//	router.Use(idempotency.Middleware(store))
//
// # Distributed Usage
//
// For multi-instance deployments share the state through Redis:
//
//	store := idempotency.NewRedisStore(rdb, 24*time.Hour).
//	    WithPrefix("billing:dedup:")
//	router.Use(idempotency.Middleware(store))
//
// MongoStore offers the same guarantees backed by a collection with a
// TTL index, for deployments that already run MongoDB and not Redis.
package idempotency

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyProcessed reports that an event ID was seen before.
// The middleware treats it as a silent skip; direct Store users can
// branch on it with errors.Is.
var ErrAlreadyProcessed = errors.New("event already processed")

// Store tracks processed event IDs.
//
// Implementations must be safe for concurrent use. Atomic backends
// (Redis SET NX, Mongo unique insert) may claim the ID inside
// IsDuplicate so that two instances racing on the same event cannot
// both proceed.
type Store interface {
	// IsDuplicate reports whether eventID has already been processed.
	//
	// Returns:
	//   - (true, nil): seen before, skip it
	//   - (false, nil): new, proceed
	//   - (false, error): the check itself failed
	IsDuplicate(ctx context.Context, eventID string) (bool, error)

	// MarkProcessed records eventID with the store's default TTL.
	// Call it after the handlers succeed, so a failed dispatch can be
	// retried by redelivery.
	MarkProcessed(ctx context.Context, eventID string) error

	// MarkProcessedWithTTL records eventID with a custom retention
	// window, for event types whose redelivery horizon differs from
	// the default.
	MarkProcessedWithTTL(ctx context.Context, eventID string, ttl time.Duration) error

	// Remove forgets eventID, allowing it to be processed again.
	// Mostly useful in tests and manual intervention.
	Remove(ctx context.Context, eventID string) error
}
