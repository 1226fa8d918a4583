package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/hooklab/dispatch"
	"github.com/hooklab/dispatch/codec"
)

func TestStartNilConnection(t *testing.T) {
	src := New(nil, dispatch.New())
	if err := src.Start(context.Background(), "events.test"); !errors.Is(err, ErrNilConnection) {
		t.Fatalf("err = %v, want ErrNilConnection", err)
	}
}

func TestOptions(t *testing.T) {
	src := New(nil, dispatch.New(), WithQueue("billing"), WithCodec(codec.MsgPack{}))
	if src.queue != "billing" {
		t.Errorf("queue = %q", src.queue)
	}
	if want := (codec.MsgPack{}).Name(); src.codec.Name() != want {
		t.Errorf("codec = %q, want %q", src.codec.Name(), want)
	}

	src = New(nil, dispatch.New(), WithCodec(nil), WithLogger(nil))
	if src.codec == nil || src.logger == nil {
		t.Error("nil options clobbered defaults")
	}
}

func TestCloseWithoutStart(t *testing.T) {
	src := New(nil, dispatch.New())
	if err := src.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
