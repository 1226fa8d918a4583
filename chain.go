package dispatch

import (
	"context"
	"fmt"
)

// compose builds the middleware call chain around a terminal step.
//
// The chain is built from the last middleware outward so the first
// registered middleware is the outermost wrapper: pre-continuation code
// runs in registration order, post-continuation code unwinds in reverse.
//
// Each wrapper allocates a fresh call counter per execution, so the
// continuation-misuse guard never leaks between dispatches. A second
// continuation call fails with ErrContinuationReused and is surfaced as
// the terminal error even when the middleware discards it.
func compose(ctx context.Context, evt *Event, middleware []Middleware, terminal Next) Next {
	chain := terminal
	for i := len(middleware) - 1; i >= 0; i-- {
		m, inner, pos := middleware[i], chain, i
		chain = func() error {
			calls := 0
			next := func() error {
				calls++
				if calls > 1 {
					return fmt.Errorf("%w (middleware %d)", ErrContinuationReused, pos)
				}
				return inner()
			}
			err := m(ctx, evt, next)
			if err == nil && calls > 1 {
				err = fmt.Errorf("%w (middleware %d)", ErrContinuationReused, pos)
			}
			return err
		}
	}
	return chain
}

// runSequential executes handlers in registration order, each settling
// before the next starts. The first failure aborts the remaining
// handlers for this dispatch; work already done is not undone.
func runSequential(ctx context.Context, evt *Event, handlers []Handler) error {
	for _, h := range handlers {
		if err := h(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}
