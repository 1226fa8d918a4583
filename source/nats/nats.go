// Package nats feeds events from NATS subjects into a dispatch router.
//
// Each subscribed subject carries encoded events; the source decodes
// them and calls Dispatch. With a queue group set, instances sharing
// the group split the load instead of each receiving every event.
//
// Example:
//
//	nc, _ := nats.Connect(nats.DefaultURL)
//	src := natssource.New(nc, router, natssource.WithQueue("billing"))
//	if err := src.Start(ctx, "events.invoice", "events.charge"); err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
package nats

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/hooklab/dispatch"
	"github.com/hooklab/dispatch/codec"
)

// ErrNilConnection is returned by New when the connection is nil.
var ErrNilConnection = errors.New("nats: nil connection")

// Source subscribes to NATS subjects and dispatches decoded events.
type Source struct {
	conn   *nats.Conn
	router *dispatch.Router
	codec  codec.Codec
	logger *slog.Logger
	queue  string

	mu   sync.Mutex
	subs []*nats.Subscription
	ctx  context.Context
}

// Option configures a Source
type Option func(*Source)

// WithCodec sets the codec used to decode incoming messages.
// Defaults to JSON.
func WithCodec(c codec.Codec) Option {
	return func(s *Source) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithQueue makes subscriptions join a queue group, so instances
// sharing the group load-balance instead of fanning out.
func WithQueue(queue string) Option {
	return func(s *Source) {
		s.queue = queue
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a source consuming from conn into router.
func New(conn *nats.Conn, router *dispatch.Router, opts ...Option) *Source {
	s := &Source{
		conn:   conn,
		router: router,
		codec:  codec.Default(),
		logger: slog.Default().With("component", "source>nats"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to the given subjects. Calling Start again adds
// subjects to an already running source.
//
// The context is held for the lifetime of the subscriptions and passed
// to every dispatch; cancelling it does not unsubscribe, Close does.
func (s *Source) Start(ctx context.Context, subjects ...string) error {
	if s.conn == nil {
		return ErrNilConnection
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx

	for _, subject := range subjects {
		var (
			sub *nats.Subscription
			err error
		)
		if s.queue != "" {
			sub, err = s.conn.QueueSubscribe(subject, s.queue, s.handleMessage)
		} else {
			sub, err = s.conn.Subscribe(subject, s.handleMessage)
		}
		if err != nil {
			return err
		}
		s.subs = append(s.subs, sub)
		s.logger.Debug("subscribed", "subject", subject, "queue", s.queue)
	}
	return nil
}

func (s *Source) handleMessage(msg *nats.Msg) {
	evt, err := s.codec.Decode(msg.Data)
	if err != nil {
		s.logger.Error("decode failed", "subject", msg.Subject, "error", err)
		return
	}

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.router.Dispatch(ctx, evt); err != nil {
		s.logger.Error("dispatch failed",
			"subject", msg.Subject, "event", evt.Type, "event_id", evt.ID, "error", err)
	}
}

// Publish encodes an event and publishes it to a subject. Convenience
// for producers sharing the source's codec.
func (s *Source) Publish(subject string, evt *dispatch.Event) error {
	data, err := s.codec.Encode(evt)
	if err != nil {
		return err
	}
	return s.conn.Publish(subject, data)
}

// Close unsubscribes from all subjects. Safe to call multiple times.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	s.subs = nil
	return errs
}
