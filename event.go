package dispatch

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Event is the unit of dispatch. The Type string is the routing key and
// matching is exact and case-sensitive; hierarchy is whatever the caller
// encodes into dot-separated segments.
//
// Events are created by the caller (typically a decoder such as the
// webhook or source adapters) immediately before dispatch. The router
// never clones an event: middleware and handlers may mutate it in place
// and later stages observe those mutations.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData is the payload container. Object is opaque to the router.
type EventData struct {
	Object any `json:"object"`
}

// Handler processes one event. A non-nil error fails the dispatch.
//
// The same handler value may be registered for multiple event types, or
// multiple times for the same type; the router does not deduplicate.
type Handler func(ctx context.Context, evt *Event) error

// Next advances the middleware chain to the next stage. Each chain
// invocation hands every middleware a fresh continuation; calling it a
// second time fails the dispatch with ErrContinuationReused.
type Next func() error

// Middleware wraps handler execution. It may run logic before calling
// next, after it, both, or never call next at all - in which case every
// stage inward of it (including all matched handlers) is skipped and
// the dispatch completes without error.
type Middleware func(ctx context.Context, evt *Event, next Next) error

// Strategy selects the failure-aggregation mode for a fan-out group.
type Strategy int

const (
	// AllOrNothing fails the group with the first handler failure by
	// completion order. Remaining handlers keep running in the
	// background; there is no cancellation.
	AllOrNothing Strategy = iota

	// BestEffort never fails the group. Individual failures are handed
	// to the group's error handler, if one is configured.
	BestEffort
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case AllOrNothing:
		return "all_or_nothing"
	case BestEffort:
		return "best_effort"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

var idCounter uint64

// NewID generates a new unique event ID.
func NewID() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return strconv.FormatUint(atomic.AddUint64(&idCounter, 1), 10)
}
