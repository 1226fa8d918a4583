package dispatch

import (
	"context"
	"log/slog"
)

const (
	eventContextKey contextKey = iota
)

type eventContextData struct {
	eventID   string
	eventType string
	router    string
	metadata  map[string]string
	logger    *slog.Logger
}

// contextKey
type contextKey int

// ContextEventID returns the event ID stored in the dispatch context.
func ContextEventID(ctx context.Context) string {
	if d, ok := ctx.Value(eventContextKey).(*eventContextData); ok {
		return d.eventID
	}
	return ""
}

// ContextEventType returns the event type stored in the dispatch context.
func ContextEventType(ctx context.Context) string {
	if d, ok := ctx.Value(eventContextKey).(*eventContextData); ok {
		return d.eventType
	}
	return ""
}

// ContextRouter returns the name of the router that started the dispatch.
func ContextRouter(ctx context.Context) string {
	if d, ok := ctx.Value(eventContextKey).(*eventContextData); ok {
		return d.router
	}
	return ""
}

// ContextMetadata returns transport metadata attached by an ingress
// adapter, if any.
func ContextMetadata(ctx context.Context) map[string]string {
	if d, ok := ctx.Value(eventContextKey).(*eventContextData); ok {
		return d.metadata
	}
	return nil
}

// ContextLogger returns the dispatch logger. Falls back to the default
// logger outside a dispatch.
func ContextLogger(ctx context.Context) *slog.Logger {
	if d, ok := ctx.Value(eventContextKey).(*eventContextData); ok && d.logger != nil {
		return d.logger
	}
	return slog.Default()
}

// ContextWithMetadata attaches transport metadata to a context before
// dispatch. Ingress adapters use this to pass delivery details (stream
// IDs, partitions, retry counts) through to middleware.
func ContextWithMetadata(ctx context.Context, metadata map[string]string) context.Context {
	if metadata == nil {
		return ctx
	}
	if d, ok := ctx.Value(eventContextKey).(*eventContextData); ok {
		d.metadata = metadata
		return ctx
	}
	return context.WithValue(ctx, eventContextKey, &eventContextData{metadata: metadata})
}

func contextWithEvent(ctx context.Context, eventID, eventType, router string, l *slog.Logger) context.Context {
	var metadata map[string]string
	if d, ok := ctx.Value(eventContextKey).(*eventContextData); ok {
		metadata = d.metadata
	}
	return context.WithValue(ctx, eventContextKey, &eventContextData{
		eventID:   eventID,
		eventType: eventType,
		router:    router,
		metadata:  metadata,
		logger:    l,
	})
}
