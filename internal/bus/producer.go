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
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/wardenlog/wardenlog/internal/metrics"
)

// ProducerConfig configures the durable publisher.
type ProducerConfig struct {
	URL             string
	ClientIDPrefix  string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	MaxMessageBytes int
	QueueDepth      int
	PublishRetry    backoff.BackOff
}

// DefaultProducerConfig returns production defaults, overridable per field.
func DefaultProducerConfig(url string) ProducerConfig {
	return ProducerConfig{
		URL:             url,
		ClientIDPrefix:  "wardenlog",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
		MaxMessageBytes: 1024 * 1024, // 1MB cap before compression
		QueueDepth:      1024,
	}
}

// job is one queued publish awaiting a worker.
type job struct {
	ctx   context.Context
	topic string
	msg   *message.Message
	onAck func(error)
}

// Producer publishes gzip-compressed payloads onto bus topics with
// at-least-once delivery, a circuit breaker around the broker call, and a
// bounded in-memory queue: when the queue is full, Publish blocks until a
// worker drains it, surfacing backpressure to the caller instead of
// dropping messages.
type Producer struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[interface{}]
	cfg       ProducerConfig
	jobs      chan job
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
}

// NewProducer dials the bus and starts the worker pool that drains the
// bounded publish queue.
func NewProducer(cfg ProducerConfig, workers int) (*Producer, error) {
	logger := watermill.NewStdLogger(false, false)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create bus publisher: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "bus-producer",
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
	})

	if workers <= 0 {
		workers = 4
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 1024
	}

	p := &Producer{
		publisher: pub,
		breaker:   breaker,
		cfg:       cfg,
		jobs:      make(chan job, cfg.QueueDepth),
		closed:    make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p, nil
}

func (p *Producer) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		err := p.publishNow(j.ctx, j.topic, j.msg)
		if j.onAck != nil {
			j.onAck(err)
		}
	}
}

func (p *Producer) publishNow(_ context.Context, topic string, msg *message.Message) error {
	start := time.Now()
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(topic, msg)
	})
	metrics.BusPublishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BusPublishTotal.WithLabelValues(topic, "error").Inc()
		return err
	}
	metrics.BusPublishTotal.WithLabelValues(topic, "ok").Inc()
	return nil
}

// Publish enqueues value under key on topic and invokes onAck (if non-nil)
// once the broker has acknowledged the publish or the attempt has failed
// after the configured retry budget. Publish blocks if the internal queue
// is full, surfacing backpressure to the caller rather than buffering
// without bound. The payload is gzip-compressed before being handed to the
// broker; a message exceeding MaxMessageBytes before compression is
// rejected immediately without entering the queue.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte, onAck func(error)) error {
	if p.cfg.MaxMessageBytes > 0 && len(value) > p.cfg.MaxMessageBytes {
		return fmt.Errorf("message for topic %s exceeds max size %d bytes", topic, p.cfg.MaxMessageBytes)
	}

	compressed, err := gzipCompress(value)
	if err != nil {
		return fmt.Errorf("compress message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), compressed)
	msg.Metadata.Set("key", key)
	msg.Metadata.Set("content-encoding", "gzip")
	if key != "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, key)
	}

	select {
	case <-p.closed:
		return fmt.Errorf("bus producer is closed")
	default:
	}

	select {
	case p.jobs <- job{ctx: ctx, topic: topic, msg: msg, onAck: onAck}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishSync publishes and waits synchronously for the result, retrying
// according to cfg.PublishRetry when set.
func (p *Producer) PublishSync(ctx context.Context, topic, key string, value []byte) error {
	operation := func() error {
		done := make(chan error, 1)
		if err := p.Publish(ctx, topic, key, value, func(err error) { done <- err }); err != nil {
			return err
		}
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if p.cfg.PublishRetry == nil {
		return operation()
	}
	return backoff.Retry(operation, backoff.WithContext(p.cfg.PublishRetry, ctx))
}

// Close drains the worker pool and closes the underlying broker connection.
func (p *Producer) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
		close(p.jobs)
	})
	p.wg.Wait()
	return p.publisher.Close()
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
