// Package monitor tracks dispatch outcomes per event type.
//
// A Collector attached to a router through its middleware counts
// dispatches and failures, remembers the last error, and measures
// handler latency. The monitor/http and monitor/health subpackages
// expose the collected state over HTTP and gRPC health checks.
//
// Example:
//
//	collector := monitor.NewCollector()
//	router.Use(collector.Middleware())
//
//	http.Handle("/monitor/", monitorhttp.New(collector))
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/hooklab/dispatch"
)

// Stats is a snapshot of the counters for one event type.
type Stats struct {
	EventType     string        `json:"event_type"`
	Dispatched    uint64        `json:"dispatched"`
	Failed        uint64        `json:"failed"`
	LastError     string        `json:"last_error,omitempty"`
	LastErrorAt   *time.Time    `json:"last_error_at,omitempty"`
	LastActivity  time.Time     `json:"last_activity"`
	TotalDuration time.Duration `json:"total_duration"`
}

// AvgDuration returns the mean handler latency for the type.
func (s Stats) AvgDuration() time.Duration {
	if s.Dispatched == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Dispatched)
}

// FailureRatio returns failed/dispatched, 0 when nothing dispatched.
func (s Stats) FailureRatio() float64 {
	if s.Dispatched == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Dispatched)
}

// Collector accumulates per-type dispatch statistics. Safe for
// concurrent use.
type Collector struct {
	mu      sync.RWMutex
	stats   map[string]*Stats
	started time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		stats:   make(map[string]*Stats),
		started: time.Now(),
	}
}

// Record adds one dispatch outcome for eventType.
func (c *Collector) Record(eventType string, duration time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[eventType]
	if !ok {
		s = &Stats{EventType: eventType}
		c.stats[eventType] = s
	}
	s.Dispatched++
	s.TotalDuration += duration
	s.LastActivity = time.Now()
	if err != nil {
		s.Failed++
		s.LastError = err.Error()
		at := s.LastActivity
		s.LastErrorAt = &at
	}
}

// Stats returns a copy of the counters for eventType; ok is false when
// the type has never been dispatched.
func (c *Collector) Stats(eventType string) (Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stats[eventType]
	if !ok {
		return Stats{}, false
	}
	return *s, true
}

// Snapshot returns copies of the counters for every seen event type.
func (c *Collector) Snapshot() map[string]Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Stats, len(c.stats))
	for k, v := range c.stats {
		out[k] = *v
	}
	return out
}

// Totals returns the aggregate dispatched and failed counts.
func (c *Collector) Totals() (dispatched, failed uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.stats {
		dispatched += s.Dispatched
		failed += s.Failed
	}
	return dispatched, failed
}

// FailureRatio returns the aggregate failed/dispatched ratio across
// all event types, 0 when nothing has been dispatched.
func (c *Collector) FailureRatio() float64 {
	dispatched, failed := c.Totals()
	if dispatched == 0 {
		return 0
	}
	return float64(failed) / float64(dispatched)
}

// Started returns when the collector was created.
func (c *Collector) Started() time.Time {
	return c.started
}

// Reset clears all counters. Intended for tests.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[string]*Stats)
}

// Middleware records the outcome and latency of every dispatch that
// flows through the router. The dispatch result is passed through
// unchanged.
func (c *Collector) Middleware() dispatch.Middleware {
	return func(ctx context.Context, evt *dispatch.Event, next dispatch.Next) error {
		start := time.Now()
		err := next()
		c.Record(evt.Type, time.Since(start), err)
		return err
	}
}
