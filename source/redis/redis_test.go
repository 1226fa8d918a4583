package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/hooklab/dispatch"
)

func TestStreamName(t *testing.T) {
	src := New(nil, dispatch.New(), "workers")
	if got := src.StreamName("invoice.paid"); got != "events:invoice.paid" {
		t.Fatalf("stream name = %q", got)
	}

	src = New(nil, dispatch.New(), "workers", WithStreamPrefix("billing"))
	if got := src.StreamName("invoice.paid"); got != "billing:invoice.paid" {
		t.Fatalf("prefixed stream name = %q", got)
	}
}

func TestOptions(t *testing.T) {
	src := New(nil, dispatch.New(), "workers",
		WithConsumerName("worker-1"),
		WithBlock(time.Second))
	if src.consumer != "worker-1" {
		t.Errorf("consumer = %q", src.consumer)
	}
	if src.block != time.Second {
		t.Errorf("block = %v", src.block)
	}

	// zero-value options fall back to defaults
	src = New(nil, dispatch.New(), "workers",
		WithConsumerName(""), WithBlock(0), WithStreamPrefix(""), WithCodec(nil))
	if src.consumer == "" || src.block != DefaultBlock ||
		src.streamPrefix != DefaultStreamPrefix || src.codec == nil {
		t.Errorf("defaults not preserved: %+v", src)
	}
}

func TestIsBusyGroup(t *testing.T) {
	if !isBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Error("BUSYGROUP reply not recognized")
	}
	if isBusyGroup(errors.New("connection refused")) {
		t.Error("unrelated error treated as BUSYGROUP")
	}
	if isBusyGroup(nil) {
		t.Error("nil treated as BUSYGROUP")
	}
}
