// Package webhook provides the HTTP ingress adapter: it authenticates
// an inbound webhook request, decodes its body into an event, and
// dispatches it through a router.
//
// The adapter talks to the router only through Dispatch; routing,
// middleware and fan-out semantics all live in the dispatch package.
//
// Example:
//
//	router := dispatch.New()
//	router.Register(onInvoicePaid, webhook.EventInvoicePaid)
//
//	h := webhook.New(router,
//	    webhook.WithVerifier(webhook.NewHMACVerifier(signingSecret)))
//	http.Handle("/webhooks", h)
package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/hooklab/dispatch"
)

// DefaultMaxBodyBytes caps the request body size.
var DefaultMaxBodyBytes int64 = 1 << 20 // 1 MiB

// Handler is an http.Handler that receives webhook deliveries.
type Handler struct {
	router       *dispatch.Router
	verifier     Verifier
	logger       *slog.Logger
	maxBodyBytes int64
}

// Option configures the webhook handler
type Option func(*Handler)

// WithVerifier sets the signature verifier. Without one, deliveries
// are accepted unauthenticated - only do that behind a trusted proxy
// that has already verified them.
func WithVerifier(v Verifier) Option {
	return func(h *Handler) {
		h.verifier = v
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMaxBodyBytes overrides the request body limit
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// New creates a webhook handler dispatching into router.
func New(router *dispatch.Router, opts ...Option) *Handler {
	h := &Handler{
		router:       router,
		logger:       slog.Default().With("component", "webhook"),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
//
// Responses:
//   - 405 for anything but POST
//   - 401 when signature verification fails
//   - 400 when the body is unreadable, oversized or not a valid event
//   - 500 when the dispatch fails; the provider will redeliver
//   - 200 with {"received":true} otherwise
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		http.Error(w, "unable to read body", http.StatusBadRequest)
		return
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(r.Header, body); err != nil {
			h.logger.Warn("rejected delivery", "error", err, "remote", r.RemoteAddr)
			http.Error(w, "signature verification failed", http.StatusUnauthorized)
			return
		}
	}

	var evt dispatch.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		http.Error(w, "malformed event payload", http.StatusBadRequest)
		return
	}
	if evt.Type == "" {
		http.Error(w, "event type is required", http.StatusBadRequest)
		return
	}

	if err := h.router.Dispatch(r.Context(), &evt); err != nil {
		h.logger.Error("dispatch failed", "event", evt.Type, "event_id", evt.ID, "error", err)
		http.Error(w, "event processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, `{"received":true}`)
}
