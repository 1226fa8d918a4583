package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGroupPrefixesTypes(t *testing.T) {
	r := testRouter()
	var got []string
	err := r.Group("customer", func(g *Group) {
		h := func(ctx context.Context, evt *Event) error {
			got = append(got, evt.Type)
			return nil
		}
		g.Register(h, "created")
		g.Register(h, "deleted", "updated")
	})
	if err != nil {
		t.Fatalf("group: %v", err)
	}

	for _, eventType := range []string{"customer.created", "customer.deleted", "customer.updated"} {
		if err := r.Dispatch(context.Background(), testEvent(eventType)); err != nil {
			t.Fatalf("dispatch %s: %v", eventType, err)
		}
	}
	want := []string{"customer.created", "customer.deleted", "customer.updated"}
	if !cmp.Equal(got, want) {
		t.Errorf("dispatched diff: %v", cmp.Diff(got, want))
	}
	// Unprefixed type never registered.
	if len(r.HandlersFor("created")) != 0 {
		t.Error("group leaked an unprefixed registration")
	}
}

func TestGroupNested(t *testing.T) {
	r := testRouter()
	var ran bool
	r.Group("customer", func(g *Group) {
		g.Group("subscription", func(sub *Group) {
			if sub.Prefix() != "customer.subscription" {
				t.Errorf("nested prefix %q", sub.Prefix())
			}
			sub.Register(func(ctx context.Context, evt *Event) error {
				ran = true
				return nil
			}, "created")
		})
	})
	if err := r.Dispatch(context.Background(), testEvent("customer.subscription.created")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !ran {
		t.Error("nested group handler did not run")
	}
}

func TestGroupEmptyPrefix(t *testing.T) {
	r := testRouter()
	if err := r.Group(" ", func(g *Group) {
		t.Error("builder invoked for invalid prefix")
	}); !errors.Is(err, ErrEmptyPrefix) {
		t.Errorf("expected ErrEmptyPrefix, got %v", err)
	}
}

func TestGroupRejectsEmptyMemberType(t *testing.T) {
	r := testRouter()
	r.Group("customer", func(g *Group) {
		// The raw type is validated before prefixing, otherwise
		// "customer." would slip through as a real route.
		err := g.Register(func(ctx context.Context, evt *Event) error { return nil }, " ")
		if !errors.Is(err, ErrEmptyEventType) {
			t.Errorf("expected ErrEmptyEventType, got %v", err)
		}
	})
	if len(r.HandlersFor("customer. ")) != 0 || len(r.HandlersFor("customer.")) != 0 {
		t.Error("invalid member type was registered")
	}
}

func TestGroupUseIsGlobal(t *testing.T) {
	// Middleware registered inside a group applies to the whole router,
	// not only to the group's prefix. Kept deliberately; see Group.Use.
	r := testRouter()
	var saw []string
	r.Group("customer", func(g *Group) {
		g.Use(func(ctx context.Context, evt *Event, next Next) error {
			saw = append(saw, evt.Type)
			return next()
		})
		g.Register(func(ctx context.Context, evt *Event) error { return nil }, "created")
	})
	r.Register(func(ctx context.Context, evt *Event) error { return nil }, "outside")

	r.Dispatch(context.Background(), testEvent("customer.created"))
	r.Dispatch(context.Background(), testEvent("outside"))

	want := []string{"customer.created", "outside"}
	if !cmp.Equal(saw, want) {
		t.Errorf("group middleware scope diff: %v", cmp.Diff(saw, want))
	}
}

func TestGroupFanout(t *testing.T) {
	r := testRouter()
	boom := errors.New("boom")
	r.Group("order", func(g *Group) {
		g.Fanout("placed", []Handler{
			func(ctx context.Context, evt *Event) error { return nil },
			func(ctx context.Context, evt *Event) error { return boom },
		})
	})
	err := r.Dispatch(context.Background(), testEvent("order.placed"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom via prefixed fan-out, got %v", err)
	}
}
