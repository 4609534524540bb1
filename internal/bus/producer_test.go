// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePublisher implements watermill's message.Publisher in-memory.
type fakePublisher struct {
	mu       sync.Mutex
	received []*message.Message
	failNext bool
}

func (f *fakePublisher) Publish(_ string, messages ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return assert.AnError
	}
	f.received = append(f.received, messages...)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func newTestProducer(pub message.Publisher) *Producer {
	p := &Producer{
		publisher: pub,
		breaker: gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
			Name: "test",
		}),
		cfg:    DefaultProducerConfig("nats://127.0.0.1:4222"),
		jobs:   make(chan job, 4),
		closed: make(chan struct{}),
	}
	p.wg.Add(1)
	go p.worker()
	return p
}

func TestGzipRoundTrip(t *testing.T) {
	original := []byte(`{"hello":"world"}`)
	compressed, err := gzipCompress(original)
	require.NoError(t, err)
	assert.NotEqual(t, original, compressed)

	decompressed, err := gzipDecompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, decompressed)
}

func TestProducerPublishRejectsOversizedMessage(t *testing.T) {
	pub := &fakePublisher{}
	p := newTestProducer(pub)
	defer p.Close()
	p.cfg.MaxMessageBytes = 8

	err := p.Publish(context.Background(), TopicRawLogs, "k1", []byte("this payload is definitely too large"), nil)
	assert.Error(t, err)
}

func TestProducerPublishInvokesOnAck(t *testing.T) {
	pub := &fakePublisher{}
	p := newTestProducer(pub)
	defer p.Close()

	done := make(chan error, 1)
	err := p.Publish(context.Background(), TopicRawLogs, "k1", []byte(`{"a":1}`), func(ackErr error) {
		done <- ackErr
	})
	require.NoError(t, err)

	select {
	case ackErr := <-done:
		assert.NoError(t, ackErr)
	case <-time.After(2 * time.Second):
		t.Fatal("onAck was never called")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.received, 1)
}

func TestProducerPublishSyncSurfacesBrokerError(t *testing.T) {
	pub := &fakePublisher{failNext: true}
	p := newTestProducer(pub)
	defer p.Close()

	err := p.PublishSync(context.Background(), TopicRawLogs, "k1", []byte(`{"a":1}`))
	assert.Error(t, err)
}
