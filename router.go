package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys
const (
	spanKeyEventID   = "event.id"
	spanKeyEventType = "event.type"
	spanKeyRouter    = "event.router"
)

// Router owns one handler registry and one middleware list. It is
// stateless across dispatches: all per-dispatch state (continuation
// guards, fan-out channels) is allocated fresh inside Dispatch.
//
// Registration is expected to complete before the first dispatch.
// The registry and middleware list are guarded for concurrent use, but
// a handler registered during an in-flight dispatch may or may not be
// observed by it.
type Router struct {
	name            string
	logger          *slog.Logger
	tracingEnabled  bool
	metricsEnabled  bool
	recoveryEnabled bool

	registry *registry

	mwMutex    sync.RWMutex
	middleware []Middleware
}

// New creates a new router.
//
// Example:
//
//	router := dispatch.New(dispatch.WithName("billing"))
//	err := router.Register(handleInvoice, "invoice.paid", "invoice.voided")
func New(opts ...Option) *Router {
	c := newConfig(opts...)
	return &Router{
		name:            c.name,
		logger:          c.logger.With("component", "router>"+c.name),
		tracingEnabled:  c.tracingEnabled,
		metricsEnabled:  c.metricsEnabled,
		recoveryEnabled: c.recoveryEnabled,
		registry:        newHandlerRegistry(),
	}
}

// Name returns the router name.
func (r *Router) Name() string {
	return r.name
}

// Register appends a handler to each listed event type, creating the
// type's handler sequence on first registration. Registration order is
// the execution order at dispatch time.
//
// An empty or whitespace-only type is a contract violation and fails
// with ErrEmptyEventType before any type is registered. Calling
// Register with no types at all is treated as a probable caller mistake
// rather than a violation: it logs a warning and leaves the handler
// unregistered.
func (r *Router) Register(h Handler, types ...string) error {
	if h == nil {
		return ErrNilHandler
	}
	if len(types) == 0 {
		r.logger.Warn("register called without event types, handler not registered")
		return nil
	}
	for _, eventType := range types {
		if strings.TrimSpace(eventType) == "" {
			return fmt.Errorf("%w: %q", ErrEmptyEventType, eventType)
		}
	}
	for _, eventType := range types {
		r.registry.add(eventType, h)
	}
	return nil
}

// Use appends a middleware to the router's chain. Middleware run in
// registration order on the way in and reverse order on the way out.
// Returns the router for chaining.
func (r *Router) Use(m Middleware) *Router {
	if m == nil {
		return r
	}
	r.mwMutex.Lock()
	r.middleware = append(r.middleware, m)
	r.mwMutex.Unlock()
	return r
}

// Group invokes fn with a registration proxy that prepends prefix+"."
// to every event type. Rejects empty or whitespace-only prefixes.
//
// Note that Group.Use registers middleware on the parent router's
// global chain, not scoped to the prefix; see Group.Use.
func (r *Router) Group(prefix string, fn func(*Group)) error {
	if strings.TrimSpace(prefix) == "" {
		return fmt.Errorf("%w: %q", ErrEmptyPrefix, prefix)
	}
	if fn != nil {
		fn(&Group{prefix: prefix, router: r})
	}
	return nil
}

// Mount copies every (type, handlers) entry currently registered on src
// into this router under prefix+".". The copy is a one-time snapshot:
// handlers registered on src after Mount returns are not reflected
// here. Rejects empty or whitespace-only prefixes.
func (r *Router) Mount(prefix string, src *Router) error {
	if strings.TrimSpace(prefix) == "" {
		return fmt.Errorf("%w: %q", ErrEmptyPrefix, prefix)
	}
	if src == nil || src == r {
		return nil
	}
	for eventType, handlers := range src.registry.snapshot() {
		for _, h := range handlers {
			r.registry.add(prefix+"."+eventType, h)
		}
	}
	return nil
}

// HandlersFor returns the handlers registered for an event type, in
// registration order. Exact string match only; unknown types yield an
// empty slice, never an error.
func (r *Router) HandlersFor(eventType string) []Handler {
	return r.registry.handlersFor(eventType)
}

// middlewareChain returns the current middleware list for one dispatch.
func (r *Router) middlewareChain() []Middleware {
	r.mwMutex.RLock()
	defer r.mwMutex.RUnlock()
	if len(r.middleware) == 0 {
		return nil
	}
	out := make([]Middleware, len(r.middleware))
	copy(out, r.middleware)
	return out
}

// Dispatch runs one event through the middleware chain to its matched
// handlers and returns the terminal error, if any.
//
// Matched handlers run sequentially in registration order, each
// settling before the next starts; the first failure aborts the rest.
// An event whose type has no registered handlers dispatches as a
// successful no-op. Errors from middleware and handlers propagate
// unwrapped; there are no retries and no rollback of partial handler
// execution.
func (r *Router) Dispatch(ctx context.Context, evt *Event) error {
	if evt == nil {
		return ErrNilEvent
	}
	if evt.ID == "" {
		evt.ID = NewID()
	}

	start := time.Now()

	if r.metricsEnabled {
		meter := otel.Meter(r.name)
		dispatched, _ := meter.Int64Counter("event.dispatched",
			metric.WithDescription("Total number of events dispatched"))
		dispatched.Add(ctx, 1, metric.WithAttributes(attribute.String("event", evt.Type)))
	}

	if r.tracingEnabled {
		tracer := otel.Tracer(r.name)
		var span trace.Span
		ctx, span = tracer.Start(ctx, fmt.Sprintf("%s.dispatch", evt.Type),
			trace.WithAttributes(
				attribute.String(spanKeyEventID, evt.ID),
				attribute.String(spanKeyEventType, evt.Type),
				attribute.String(spanKeyRouter, r.name)),
			trace.WithSpanKind(trace.SpanKindConsumer))
		defer span.End()
	}

	ctx = contextWithEvent(ctx, evt.ID, evt.Type, r.name, r.logger)

	handlers := r.registry.handlersFor(evt.Type)
	terminal := func() error {
		return runSequential(ctx, evt, handlers)
	}
	chain := compose(ctx, evt, r.middlewareChain(), terminal)

	var err error
	if r.recoveryEnabled {
		err = runRecovered(chain)
	} else {
		err = chain()
	}

	if r.metricsEnabled {
		meter := otel.Meter(r.name)
		duration, _ := meter.Float64Histogram("event.dispatch.duration",
			metric.WithDescription("Dispatch duration in seconds"),
			metric.WithUnit("s"))
		duration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("event", evt.Type)))
		if err != nil {
			failed, _ := meter.Int64Counter("event.failed",
				metric.WithDescription("Total number of failed dispatches"))
			failed.Add(ctx, 1, metric.WithAttributes(attribute.String("event", evt.Type)))
		}
	}

	if err != nil {
		r.logger.Debug("dispatch failed", "event", evt.Type, "event_id", evt.ID, "error", err)
	}
	return err
}

// runRecovered executes the chain, normalizing a panic anywhere in the
// synchronous middleware/handler path into a *PanicError.
func runRecovered(chain Next) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
	}()
	return chain()
}
