package dispatch

import "sync"

// registry maps an event type to its ordered handler sequence.
// Entries are created lazily on first registration, appends preserve
// prior handlers, and entries are never removed. Registration order is
// the dispatch execution order for that type.
type registry struct {
	mu      sync.RWMutex
	entries map[string][]Handler
}

func newHandlerRegistry() *registry {
	return &registry{
		entries: make(map[string][]Handler),
	}
}

func (reg *registry) add(eventType string, h Handler) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.entries[eventType] = append(reg.entries[eventType], h)
}

// handlersFor returns a copy of the handler sequence for an event type.
// Unknown types yield an empty slice, never an error.
func (reg *registry) handlersFor(eventType string) []Handler {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	stored := reg.entries[eventType]
	if len(stored) == 0 {
		return nil
	}
	out := make([]Handler, len(stored))
	copy(out, stored)
	return out
}

// snapshot copies every entry, evaluated once at call time. Used by
// Mount: handlers registered in the source after the snapshot are not
// reflected in the copy.
func (reg *registry) snapshot() map[string][]Handler {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make(map[string][]Handler, len(reg.entries))
	for eventType, handlers := range reg.entries {
		cp := make([]Handler, len(handlers))
		copy(cp, handlers)
		out[eventType] = cp
	}
	return out
}
