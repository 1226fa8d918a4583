// Package kafka feeds events from Kafka topics into a dispatch router
// via a sarama consumer group.
//
// Offsets are marked only after a successful dispatch, so a crash
// before marking re-delivers the event on rebalance (at-least-once).
//
// Recommended sarama.Config settings:
//
//	config := sarama.NewConfig()
//	config.Consumer.Offsets.AutoCommit.Enable = true
//	config.Consumer.Offsets.Initial = sarama.OffsetNewest
//
// Example:
//
//	client, _ := sarama.NewClient(brokers, config)
//	src, _ := kafkasource.New(client, "billing-workers", router)
//	go src.Run(ctx, "billing.events")
package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/hooklab/dispatch"
	"github.com/hooklab/dispatch/codec"
)

// Source consumes Kafka topics and dispatches decoded events.
type Source struct {
	group  sarama.ConsumerGroup
	router *dispatch.Router
	codec  codec.Codec
	logger *slog.Logger
}

// Option configures a Source
type Option func(*Source)

// WithCodec sets the codec used to decode message values.
// Defaults to JSON.
func WithCodec(c codec.Codec) Option {
	return func(s *Source) {
		if c != nil {
			s.codec = c
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

// New creates a source consuming as groupID into router.
func New(client sarama.Client, groupID string, router *dispatch.Router, opts ...Option) (*Source, error) {
	group, err := sarama.NewConsumerGroupFromClient(groupID, client)
	if err != nil {
		return nil, err
	}

	s := &Source{
		group:  group,
		router: router,
		codec:  codec.Default(),
		logger: slog.Default().With("component", "source>kafka"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run consumes the topics until ctx ends, rejoining the group after
// every rebalance. Returns nil on context cancellation.
func (s *Source) Run(ctx context.Context, topics ...string) error {
	if len(topics) == 0 {
		return errors.New("kafka source: no topics")
	}

	handler := &groupHandler{source: s, ctx: ctx}
	for {
		if err := s.group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			s.logger.Error("consume failed", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close leaves the consumer group.
func (s *Source) Close() error {
	return s.group.Close()
}

// Errors exposes sarama's asynchronous consumer errors. Only populated
// when Consumer.Return.Errors is enabled in the client config.
func (s *Source) Errors() <-chan error {
	return s.group.Errors()
}

// groupHandler implements sarama.ConsumerGroupHandler
type groupHandler struct {
	source *Source
	ctx    context.Context
}

func (h *groupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.source.logger.Debug("joined group", "claims", session.Claims())
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-h.ctx.Done():
			return nil
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.handle(session, msg)
		}
	}
}

func (h *groupHandler) handle(session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) {
	evt, err := h.source.codec.Decode(msg.Value)
	if err != nil {
		h.source.logger.Error("decode failed",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		// Undecodable forever; mark it so the partition moves on.
		session.MarkMessage(msg, "")
		return
	}

	if err := h.source.router.Dispatch(h.ctx, evt); err != nil {
		// Leave unmarked; the offset is retried after rebalance.
		h.source.logger.Error("dispatch failed",
			"topic", msg.Topic, "offset", msg.Offset, "event", evt.Type, "error", err)
		return
	}

	session.MarkMessage(msg, "")
}

// Compile-time check
var _ sarama.ConsumerGroupHandler = (*groupHandler)(nil)
