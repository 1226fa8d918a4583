// Package dispatch provides a type-indexed event dispatcher: handlers
// and cross-cutting middleware are registered against string event
// types, then discrete events are dispatched through an ordered
// middleware chain to the matched handlers.
//
// Basic usage:
//
//	router := dispatch.New(dispatch.WithName("billing"))
//
//	router.Use(func(ctx context.Context, evt *dispatch.Event, next dispatch.Next) error {
//	    log.Printf("-> %s", evt.Type)
//	    err := next()
//	    log.Printf("<- %s", evt.Type)
//	    return err
//	})
//
//	router.Register(func(ctx context.Context, evt *dispatch.Event) error {
//	    return processInvoice(ctx, evt.Data.Object)
//	}, "invoice.paid")
//
//	err := router.Dispatch(ctx, &dispatch.Event{
//	    ID:   dispatch.NewID(),
//	    Type: "invoice.paid",
//	    Data: dispatch.EventData{Object: payload},
//	})
//
// Middleware compose in onion order: code before next() runs in
// registration order, code after next() unwinds in reverse. A
// middleware that never calls next() short-circuits the dispatch
// without error (the gating pattern); calling next() twice fails the
// dispatch with ErrContinuationReused.
//
// Handlers for one event type run sequentially in registration order,
// each settling before the next starts. Fanout registers a composite
// handler that runs a fixed group concurrently under one of two
// strategies:
//
//	// all-or-nothing: first failure fails the dispatch
//	router.Fanout("payment.captured", []dispatch.Handler{a, b, c})
//
//	// best-effort: failures observed, dispatch always succeeds
//	router.Fanout("payment.captured", []dispatch.Handler{a, b, c},
//	    dispatch.WithStrategy(dispatch.BestEffort),
//	    dispatch.WithErrorHandler(logFailure))
//
// Group rewrites event types under a prefix at registration time, and
// Mount copies another router's registry under a prefix as a one-time
// snapshot:
//
//	router.Group("customer", func(g *dispatch.Group) {
//	    g.Register(onCreated, "created")   // customer.created
//	    g.Register(onDeleted, "deleted")   // customer.deleted
//	})
//	router.Mount("stripe", stripeRouter)
//
// The router does not persist events, retry failures, deduplicate by
// event ID, or cancel running handlers. Idempotency, rate limiting,
// payload validation and monitoring are layered as middleware; see the
// idempotency, ratelimit, payload and monitor packages. Inbound
// transports (HTTP webhooks, NATS, Redis Streams, Kafka) live in the
// webhook and source packages and talk to the router only through
// Register and Dispatch.
package dispatch
