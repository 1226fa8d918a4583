package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitForCount(t *testing.T, counter *int32, want int32, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(counter) >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d invocations, got %d", want, atomic.LoadInt32(counter))
}

func TestFanoutAllOrNothing(t *testing.T) {
	r := testRouter()
	boom := errors.New("boom")
	var started int32
	ok := func(ctx context.Context, evt *Event) error {
		atomic.AddInt32(&started, 1)
		return nil
	}
	fail := func(ctx context.Context, evt *Event) error {
		atomic.AddInt32(&started, 1)
		return boom
	}
	if err := r.Fanout("payment.captured", []Handler{ok, fail, ok}); err != nil {
		t.Fatalf("fanout: %v", err)
	}

	err := r.Dispatch(context.Background(), testEvent("payment.captured"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected the failing handler's error, got %v", err)
	}
	// All three were started even though the composite already failed.
	waitForCount(t, &started, 3, time.Second)
}

func TestFanoutBestEffort(t *testing.T) {
	r := testRouter()
	boom := errors.New("boom")
	var observed int32
	var observedErr error
	ok := func(ctx context.Context, evt *Event) error { return nil }
	fail := func(ctx context.Context, evt *Event) error { return boom }

	err := r.Fanout("payment.captured", []Handler{ok, fail, ok},
		WithStrategy(BestEffort),
		WithErrorHandler(func(evt *Event, err error) {
			atomic.AddInt32(&observed, 1)
			observedErr = err
		}))
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}

	if err := r.Dispatch(context.Background(), testEvent("payment.captured")); err != nil {
		t.Fatalf("best-effort dispatch must succeed, got %v", err)
	}
	if got := atomic.LoadInt32(&observed); got != 1 {
		t.Fatalf("error handler called %d times, expected 1", got)
	}
	if !errors.Is(observedErr, boom) {
		t.Errorf("observed error %v, expected boom", observedErr)
	}
}

func TestFanoutBestEffortWithoutObserver(t *testing.T) {
	r := testRouter()
	fail := func(ctx context.Context, evt *Event) error { return errors.New("dropped") }
	r.Fanout("x", []Handler{fail, fail}, WithStrategy(BestEffort))

	if err := r.Dispatch(context.Background(), testEvent("x")); err != nil {
		t.Fatalf("failures must be discarded silently, got %v", err)
	}
}

func TestFanoutNormalizesPanics(t *testing.T) {
	r := testRouter()
	var observedErr error
	panicky := func(ctx context.Context, evt *Event) error {
		panic("raw string throw")
	}
	r.Fanout("x", []Handler{panicky},
		WithStrategy(BestEffort),
		WithErrorHandler(func(evt *Event, err error) {
			observedErr = err
		}))

	if err := r.Dispatch(context.Background(), testEvent("x")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !IsPanic(observedErr) {
		t.Fatalf("expected normalized PanicError, got %v", observedErr)
	}
	var pe *PanicError
	if errors.As(observedErr, &pe) && pe.Value != "raw string throw" {
		t.Errorf("panic value lost: %v", pe.Value)
	}
}

func TestFanoutAllOrNothingPanic(t *testing.T) {
	r := testRouter()
	panicky := func(ctx context.Context, evt *Event) error { panic("bad") }
	r.Fanout("x", []Handler{panicky})

	err := r.Dispatch(context.Background(), testEvent("x"))
	if !IsPanic(err) {
		t.Fatalf("expected PanicError, got %v", err)
	}
}

func TestFanoutEmptyGroup(t *testing.T) {
	r := testRouter()
	for _, strategy := range []Strategy{AllOrNothing, BestEffort} {
		if err := r.Fanout("empty."+strategy.String(), nil, WithStrategy(strategy)); err != nil {
			t.Fatalf("fanout: %v", err)
		}
		if err := r.Dispatch(context.Background(), testEvent("empty."+strategy.String())); err != nil {
			t.Fatalf("empty group under %s must resolve, got %v", strategy, err)
		}
	}
}

func TestFanoutStartsAllBeforeAwaiting(t *testing.T) {
	r := testRouter()
	const n = 4
	var running int32
	release := make(chan struct{})
	blocker := func(ctx context.Context, evt *Event) error {
		atomic.AddInt32(&running, 1)
		<-release
		return nil
	}
	handlers := make([]Handler, n)
	for i := range handlers {
		handlers[i] = blocker
	}
	r.Fanout("x", handlers)

	done := make(chan error, 1)
	go func() {
		done <- r.Dispatch(context.Background(), testEvent("x"))
	}()

	// Every handler must be started while all of them are still blocked.
	waitForCount(t, &running, n, time.Second)
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}

func TestFanoutNilHandler(t *testing.T) {
	r := testRouter()
	ok := func(ctx context.Context, evt *Event) error { return nil }
	if err := r.Fanout("x", []Handler{ok, nil}); !errors.Is(err, ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
}

func TestFanoutGroupListIsFixedAtRegistration(t *testing.T) {
	r := testRouter()
	var count int32
	h := func(ctx context.Context, evt *Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	}
	handlers := []Handler{h, h}
	r.Fanout("x", handlers)
	// Mutating the caller's slice afterwards must not affect the group.
	handlers[0] = func(ctx context.Context, evt *Event) error {
		t.Error("mutated slice leaked into the fan-out group")
		return nil
	}
	if err := r.Dispatch(context.Background(), testEvent("x")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := atomic.LoadInt32(&count); got != 2 {
		t.Errorf("expected 2 invocations, got %d", got)
	}
}
