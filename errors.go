package dispatch

import (
	"errors"
	"fmt"
)

// Registration and dispatch errors.
// Use errors.Is() to check for these as they may be wrapped with
// additional context.
var (
	// ErrNilEvent is returned by Dispatch when the event is nil.
	ErrNilEvent = errors.New("event is nil")

	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("handler is nil")

	// ErrEmptyEventType is returned when registering an empty or
	// whitespace-only event type. An empty type would produce a
	// permanently unreachable route, so this is a hard failure
	// (unlike registering with an empty type list, which only warns).
	ErrEmptyEventType = errors.New("event type is empty")

	// ErrEmptyPrefix is returned by Group and Mount when the prefix is
	// empty or whitespace-only.
	ErrEmptyPrefix = errors.New("prefix is empty")

	// ErrContinuationReused is the terminal dispatch error when a
	// middleware invokes its continuation more than once in a single
	// chain execution.
	ErrContinuationReused = errors.New("continuation invoked more than once")
)

// PanicError normalizes a recovered panic value into an error. The
// original value is preserved so callers can inspect it, and the message
// carries its string form.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// IsPanic checks if an error wraps a recovered handler panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
