// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package bus

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// ConsumerConfig configures a durable, queue-grouped JetStream subscriber.
type ConsumerConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	StreamName       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// DefaultConsumerConfig returns production defaults for a named consumer
// group, overridable per field.
func DefaultConsumerConfig(url, durableName, queueGroup string) ConsumerConfig {
	return ConsumerConfig{
		URL:              url,
		DurableName:      durableName,
		QueueGroup:       queueGroup,
		SubscribersCount: 4,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// Consumer wraps a watermill/NATS JetStream subscriber bound to a
// consumer-group durable cursor. Messages are never acked by the consumer
// itself: callers commit the cursor only after their downstream side
// effect (index write, detection handoff, ...) succeeds, matching
// spec.md §4.4's rebalance-safe manual offset commit.
type Consumer struct {
	subscriber message.Subscriber
}

// NewConsumer dials the bus and binds to cfg's durable consumer group.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	logger := watermill.NewStdLogger(false, false)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
	}

	autoProvision := true
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
		autoProvision = false
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    autoProvision,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create bus consumer: %w", err)
	}

	return &Consumer{subscriber: sub}, nil
}

// Handler processes one decompressed message payload. Returning nil commits
// the offset (Ack); returning an error leaves the message uncommitted so it
// is redelivered (Nack), up to the consumer's MaxDeliver budget before the
// caller's dead-letter path takes over.
type Handler func(ctx context.Context, key string, value []byte) error

// Run subscribes to topic and invokes handler for each message until ctx is
// canceled. Payloads are gzip-decompressed before being passed to handler.
func (c *Consumer) Run(ctx context.Context, topic string, handler Handler) error {
	messages, err := c.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.process(ctx, msg, handler)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *message.Message, handler Handler) {
	value := msg.Payload
	if msg.Metadata.Get("content-encoding") == "gzip" {
		decompressed, err := gzipDecompress(value)
		if err != nil {
			msg.Nack()
			return
		}
		value = decompressed
	}

	key := msg.Metadata.Get("key")
	if err := handler(ctx, key, value); err != nil {
		msg.Nack()
		return
	}
	msg.Ack()
}

// Close releases the subscription and underlying connection.
func (c *Consumer) Close() error {
	return c.subscriber.Close()
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
