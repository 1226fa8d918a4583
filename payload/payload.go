// Package payload validates event payloads before handlers see them.
//
// A Registry maps event types to validator functions. Attached to a
// router through Middleware, it rejects a dispatch whose payload fails
// validation before any handler runs. Types without a registered
// validator pass through untouched.
//
// Example:
//
//	reg := payload.NewRegistry()
//	reg.Register("invoice.paid", func(object any) error {
//	    m, ok := object.(map[string]any)
//	    if !ok || m["amount"] == nil {
//	        return errors.New("invoice payload requires amount")
//	    }
//	    return nil
//	})
//	router.Use(payload.Middleware(reg))
package payload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hooklab/dispatch"
)

// ErrInvalidPayload wraps every validation failure so callers can
// branch on it with errors.Is.
var ErrInvalidPayload = errors.New("invalid event payload")

// ValidatorFunc inspects a decoded payload object and returns an error
// when it is unacceptable.
type ValidatorFunc func(object any) error

// Registry holds validators keyed by event type. Safe for concurrent
// use.
type Registry struct {
	mu         sync.RWMutex
	validators map[string][]ValidatorFunc
}

// NewRegistry creates an empty validator registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string][]ValidatorFunc)}
}

// Register adds a validator for an event type. Multiple validators for
// the same type all run, in registration order.
func (r *Registry) Register(eventType string, fn ValidatorFunc) error {
	if eventType == "" {
		return dispatch.ErrEmptyEventType
	}
	if fn == nil {
		return errors.New("payload: nil validator")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[eventType] = append(r.validators[eventType], fn)
	return nil
}

// Validate runs the validators registered for the event's type. It
// returns nil when none are registered.
func (r *Registry) Validate(evt *dispatch.Event) error {
	if evt == nil {
		return dispatch.ErrNilEvent
	}
	r.mu.RLock()
	fns := r.validators[evt.Type]
	r.mu.RUnlock()
	for _, fn := range fns {
		if err := fn(evt.Data.Object); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidPayload, evt.Type, err)
		}
	}
	return nil
}

// Middleware validates the event against reg before calling next. A
// failed validation aborts the dispatch without reaching any handler.
func Middleware(reg *Registry) dispatch.Middleware {
	return func(ctx context.Context, evt *dispatch.Event, next dispatch.Next) error {
		if err := reg.Validate(evt); err != nil {
			return err
		}
		return next()
	}
}

// RequireFields returns a validator asserting the payload is an object
// that carries every named field with a non-nil value. Covers the
// common case without a schema library.
func RequireFields(fields ...string) ValidatorFunc {
	return func(object any) error {
		m, ok := object.(map[string]any)
		if !ok {
			return fmt.Errorf("expected object, got %T", object)
		}
		for _, f := range fields {
			if v, ok := m[f]; !ok || v == nil {
				return fmt.Errorf("missing field %q", f)
			}
		}
		return nil
	}
}
