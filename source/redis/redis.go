// Package redis feeds events from Redis streams into a dispatch
// router using consumer groups for at-least-once delivery.
//
// Each event type maps to one stream ("<prefix>:<type>"). Entries are
// acknowledged only after a successful dispatch, so a crashed consumer
// leaves them pending for a peer to claim.
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	src := redissource.New(rdb, router, "billing-workers")
//	go src.Run(ctx, "invoice.paid", "charge.succeeded")
package redis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hooklab/dispatch"
	"github.com/hooklab/dispatch/codec"
)

// DefaultStreamPrefix namespaces the streams used by the source.
const DefaultStreamPrefix = "events"

// DefaultBlock is how long each XREADGROUP call blocks waiting for
// entries.
const DefaultBlock = 5 * time.Second

// DefaultBatch is the maximum entries fetched per XREADGROUP call.
const DefaultBatch = 10

// Source consumes Redis streams and dispatches decoded events.
type Source struct {
	client       redis.UniversalClient
	router       *dispatch.Router
	codec        codec.Codec
	logger       *slog.Logger
	group        string
	consumer     string
	streamPrefix string
	block        time.Duration
	batch        int64
}

// Option configures a Source
type Option func(*Source)

// WithCodec sets the codec used to decode stream entries.
// Defaults to JSON.
func WithCodec(c codec.Codec) Option {
	return func(s *Source) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithStreamPrefix overrides the stream name prefix.
func WithStreamPrefix(prefix string) Option {
	return func(s *Source) {
		if prefix != "" {
			s.streamPrefix = prefix
		}
	}
}

// WithConsumerName overrides the consumer name within the group.
// Defaults to a random ID; set it to something stable (hostname) when
// pending entries should survive restarts under the same name.
func WithConsumerName(name string) Option {
	return func(s *Source) {
		if name != "" {
			s.consumer = name
		}
	}
}

// WithBlock overrides how long each read blocks.
func WithBlock(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.block = d
		}
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

// New creates a source reading into router as part of group.
func New(client redis.UniversalClient, router *dispatch.Router, group string, opts ...Option) *Source {
	s := &Source{
		client:       client,
		router:       router,
		codec:        codec.Default(),
		logger:       slog.Default().With("component", "source>redis"),
		group:        group,
		consumer:     "consumer-" + dispatch.NewID(),
		streamPrefix: DefaultStreamPrefix,
		block:        DefaultBlock,
		batch:        DefaultBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StreamName returns the stream carrying eventType.
func (s *Source) StreamName(eventType string) string {
	return s.streamPrefix + ":" + eventType
}

// Publish appends an encoded event to its stream. Convenience for
// producers sharing the source's codec and naming.
func (s *Source) Publish(ctx context.Context, evt *dispatch.Event) error {
	data, err := s.codec.Encode(evt)
	if err != nil {
		return err
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.StreamName(evt.Type),
		Values: map[string]interface{}{"data": data},
	}).Err()
}

// Run consumes the streams for the given event types until ctx ends.
// It creates the consumer group on each stream first, then loops
// reading, dispatching, and acknowledging.
func (s *Source) Run(ctx context.Context, eventTypes ...string) error {
	if len(eventTypes) == 0 {
		return errors.New("redis source: no event types")
	}

	streams := make([]string, 0, len(eventTypes)*2)
	for _, eventType := range eventTypes {
		stream := s.StreamName(eventType)
		if err := s.ensureGroup(ctx, stream); err != nil {
			return err
		}
		streams = append(streams, stream)
	}
	// XREADGROUP wants stream names followed by one ">" per stream.
	for range eventTypes {
		streams = append(streams, ">")
	}

	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  streams,
			Count:    s.batch,
			Block:    s.block,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				backoff = 100 * time.Millisecond
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			s.logger.Error("read failed, backing off", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = 100 * time.Millisecond

		for _, stream := range result {
			for _, entry := range stream.Messages {
				s.handleEntry(ctx, stream.Stream, entry)
			}
		}
	}
}

func (s *Source) handleEntry(ctx context.Context, stream string, entry redis.XMessage) {
	data, ok := entry.Values["data"].(string)
	if !ok {
		s.logger.Error("invalid entry format", "stream", stream, "id", entry.ID)
		// Nothing to retry; ack so the entry does not stay pending.
		s.ack(stream, entry.ID)
		return
	}

	evt, err := s.codec.Decode([]byte(data))
	if err != nil {
		s.logger.Error("decode failed", "stream", stream, "id", entry.ID, "error", err)
		s.ack(stream, entry.ID)
		return
	}

	if err := s.router.Dispatch(ctx, evt); err != nil {
		// Leave unacked; the pending entry can be claimed and retried.
		s.logger.Error("dispatch failed",
			"stream", stream, "id", entry.ID, "event", evt.Type, "error", err)
		return
	}

	s.ack(stream, entry.ID)
}

func (s *Source) ack(stream, id string) {
	if err := s.client.XAck(context.Background(), stream, s.group, id).Err(); err != nil {
		s.logger.Error("ack failed", "stream", stream, "id", id, "error", err)
	}
}

func (s *Source) ensureGroup(ctx context.Context, stream string) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, s.group, "$").Err()
	if err != nil && !isBusyGroup(err) && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// isBusyGroup reports whether err is the "group already exists" reply.
func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
