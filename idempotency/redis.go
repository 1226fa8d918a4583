package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis SET NX for atomic claims.
//
// The recommended store for production: state is shared across
// instances, survives restarts, and Redis handles expiry without a
// sweeper goroutine.
//
// IsDuplicate both checks and claims the ID in one round trip, so two
// instances racing on the same delivery cannot both win.
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := idempotency.NewRedisStore(rdb, 24*time.Hour)
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a Redis-backed store remembering event IDs for
// ttl. The default key prefix is "idemp:".
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		prefix: "idemp:",
	}
}

// WithPrefix sets a custom key prefix, useful when several services or
// environments share one Redis. Returns the store for chaining.
//
// Example:
//
//	store := idempotency.NewRedisStore(rdb, time.Hour).
//	    WithPrefix("billing:dedup:")
func (s *RedisStore) WithPrefix(prefix string) *RedisStore {
	s.prefix = prefix
	return s
}

// IsDuplicate atomically claims eventID with SET NX. A false result
// means this caller now owns the ID; other instances asking about the
// same ID will see true until the TTL expires.
func (s *RedisStore) IsDuplicate(ctx context.Context, eventID string) (bool, error) {
	set, err := s.client.SetNX(ctx, s.prefix+eventID, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return !set, nil
}

// MarkProcessed refreshes the TTL on eventID. IsDuplicate already
// claimed the key, so this matters mainly for long-running handlers
// whose claim could expire mid-processing.
func (s *RedisStore) MarkProcessed(ctx context.Context, eventID string) error {
	return s.MarkProcessedWithTTL(ctx, eventID, s.ttl)
}

// MarkProcessedWithTTL records eventID with a custom retention window.
func (s *RedisStore) MarkProcessedWithTTL(ctx context.Context, eventID string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+eventID, "1", ttl).Err()
}

// Remove deletes the key for eventID. Succeeds even when the key does
// not exist.
func (s *RedisStore) Remove(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, s.prefix+eventID).Err()
}

// Compile-time check
var _ Store = (*RedisStore)(nil)
