package dispatch

import (
	"fmt"
	"strings"
)

// Group is a registration proxy that rewrites event types under a
// prefix before delegating to its parent router. It holds no state of
// its own beyond the prefix; see Router.Group.
type Group struct {
	prefix string
	router *Router
}

// Prefix returns the group's full prefix.
func (g *Group) Prefix() string {
	return g.prefix
}

// Register appends a handler to each listed event type, rewritten to
// prefix+"."+type. Validation matches Router.Register and runs against
// the raw types, so an empty type string still fails even though the
// prefixed form would be non-empty.
func (g *Group) Register(h Handler, types ...string) error {
	if h == nil {
		return ErrNilHandler
	}
	if len(types) == 0 {
		g.router.logger.Warn("register called without event types, handler not registered", "group", g.prefix)
		return nil
	}
	prefixed := make([]string, len(types))
	for i, eventType := range types {
		if strings.TrimSpace(eventType) == "" {
			return fmt.Errorf("%w: %q", ErrEmptyEventType, eventType)
		}
		prefixed[i] = g.prefix + "." + eventType
	}
	return g.router.Register(h, prefixed...)
}

// Use registers middleware on the parent router's GLOBAL chain. It is
// not scoped to the group's prefix: the middleware runs for every
// dispatch on the router, not only for events under this prefix.
// Scope-limited middleware can be expressed inside the middleware
// itself by checking ContextEventType for the prefix.
func (g *Group) Use(m Middleware) *Group {
	g.router.Use(m)
	return g
}

// Group creates a nested registration proxy under prefix+"."+sub.
func (g *Group) Group(prefix string, fn func(*Group)) error {
	if strings.TrimSpace(prefix) == "" {
		return fmt.Errorf("%w: %q", ErrEmptyPrefix, prefix)
	}
	if fn != nil {
		fn(&Group{prefix: g.prefix + "." + prefix, router: g.router})
	}
	return nil
}

// Fanout registers a fan-out group for the rewritten event type.
func (g *Group) Fanout(eventType string, handlers []Handler, opts ...FanoutOption) error {
	if strings.TrimSpace(eventType) == "" {
		return fmt.Errorf("%w: %q", ErrEmptyEventType, eventType)
	}
	return g.router.Fanout(g.prefix+"."+eventType, handlers, opts...)
}
