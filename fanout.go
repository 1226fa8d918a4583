package dispatch

import "context"

// Fanout registers a single composite handler for eventType that runs
// the listed handlers concurrently. The handler list is fixed at
// registration time; the composite is stored in the registry like any
// other handler and has no identity of its own.
//
// Under AllOrNothing (the default) the composite fails with the first
// handler failure by completion order. Handlers already running are not
// cancelled and their eventual failures are not separately surfaced.
// Under BestEffort the composite never fails; failures go to the
// WithErrorHandler observer in completion order, or are discarded if
// none is set. An empty handler list is valid and resolves immediately
// under either strategy.
//
// Example:
//
//	err := router.Fanout("invoice.paid",
//	    []dispatch.Handler{sendReceipt, updateLedger, notifySales},
//	    dispatch.WithStrategy(dispatch.BestEffort),
//	    dispatch.WithErrorHandler(func(evt *dispatch.Event, err error) {
//	        log.Printf("side effect failed for %s: %v", evt.ID, err)
//	    }))
func (r *Router) Fanout(eventType string, handlers []Handler, opts ...FanoutOption) error {
	cfg := &fanoutConfig{strategy: AllOrNothing}
	for _, opt := range opts {
		opt(cfg)
	}
	for _, h := range handlers {
		if h == nil {
			return ErrNilHandler
		}
	}
	group := make([]Handler, len(handlers))
	copy(group, handlers)
	return r.Register(newFanoutHandler(group, cfg), eventType)
}

// newFanoutHandler synthesizes the composite handler for a fan-out
// group.
func newFanoutHandler(handlers []Handler, cfg *fanoutConfig) Handler {
	strategy := cfg.strategy
	onError := cfg.onError
	return func(ctx context.Context, evt *Event) error {
		if len(handlers) == 0 {
			return nil
		}

		// Start every handler before awaiting any. The channel is
		// buffered for the full group so abandoned handlers can finish
		// in the background without leaking a goroutine.
		results := make(chan error, len(handlers))
		for _, h := range handlers {
			go func(h Handler) {
				results <- runGuarded(ctx, evt, h)
			}(h)
		}

		if strategy == BestEffort {
			for range handlers {
				if err := <-results; err != nil && onError != nil {
					onError(evt, err)
				}
			}
			return nil
		}

		// AllOrNothing: surface the first failure in completion order
		// without waiting for the rest.
		for range handlers {
			if err := <-results; err != nil {
				return err
			}
		}
		return nil
	}
}

// runGuarded invokes one fan-out handler, normalizing a panic into a
// *PanicError. Fan-out handlers run on their own goroutines, so this
// recovery is unconditional: an unrecovered panic here would take down
// the process regardless of the router's recovery setting.
func runGuarded(ctx context.Context, evt *Event, h Handler) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
	}()
	return h(ctx, evt)
}
