package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map and TTL expiry.
//
// Suited to single-instance deployments and tests. State is lost on
// restart and is not shared across instances; use RedisStore or
// MongoStore for those.
//
// A background goroutine sweeps expired entries once a minute. Call
// Close when done to stop it.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time // eventID -> expiry
	ttl     time.Duration
	stopCh  chan struct{}
}

// NewMemoryStore creates an in-memory store remembering event IDs for
// ttl.
//
// Example:
//
//	store := idempotency.NewMemoryStore(time.Hour)
//	defer store.Close()
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go s.sweep()
	return s
}

// IsDuplicate reports whether eventID was marked and its TTL has not
// expired.
func (s *MemoryStore) IsDuplicate(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, ok := s.entries[eventID]
	if !ok || time.Now().After(expiry) {
		return false, nil
	}
	return true, nil
}

// MarkProcessed records eventID with the default TTL.
func (s *MemoryStore) MarkProcessed(ctx context.Context, eventID string) error {
	return s.MarkProcessedWithTTL(ctx, eventID, s.ttl)
}

// MarkProcessedWithTTL records eventID with a custom TTL.
func (s *MemoryStore) MarkProcessedWithTTL(ctx context.Context, eventID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[eventID] = time.Now().Add(ttl)
	return nil
}

// Remove forgets eventID.
func (s *MemoryStore) Remove(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, eventID)
	return nil
}

// Len returns the number of tracked entries, including expired ones
// the sweeper has not collected yet.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *MemoryStore) Close() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for id, expiry := range s.entries {
				if now.After(expiry) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Compile-time check that MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
