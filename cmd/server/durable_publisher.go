// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/bus"
	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/wal"
)

// walEnvelope is the WAL payload shape: enough of a publish call to replay
// it later, nothing more.
type walEnvelope struct {
	Topic string `json:"topic"`
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// durablePublisher implements collector.Publisher in front of the raw bus
// producer: every publish is written to the WAL first, then attempted
// against NATS immediately. A failed immediate attempt is not surfaced to
// the caller as an error -- the event is already durable and wal.RetryLoop
// will redeliver it -- so Collector callers only see a failure when the WAL
// write itself fails.
type durablePublisher struct {
	wal      *wal.BadgerWAL
	producer *bus.Producer
}

func newDurablePublisher(w *wal.BadgerWAL, p *bus.Producer) *durablePublisher {
	return &durablePublisher{wal: w, producer: p}
}

func (d *durablePublisher) PublishSync(ctx context.Context, topic, key string, value []byte) error {
	entryID, err := d.wal.Write(ctx, walEnvelope{Topic: topic, Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("wal write: %w", err)
	}

	if err := d.producer.PublishSync(ctx, topic, key, value); err != nil {
		logging.Warn().Err(err).Str("entry_id", entryID).Str("topic", topic).
			Msg("immediate publish failed, leaving WAL entry for retry loop")
		return nil
	}

	if err := d.wal.Confirm(ctx, entryID); err != nil {
		logging.CtxErr(ctx, err).Str("entry_id", entryID).Msg("wal confirm failed after successful publish")
	}
	return nil
}

// walBusPublisher adapts bus.Producer to wal.Publisher for wal.RetryLoop:
// it decodes the envelope a pending entry was written with and replays the
// publish.
type walBusPublisher struct {
	producer *bus.Producer
}

func (p *walBusPublisher) PublishEntry(ctx context.Context, entry *wal.Entry) error {
	var env walEnvelope
	if err := json.Unmarshal(entry.Payload, &env); err != nil {
		return fmt.Errorf("unmarshal wal envelope: %w", err)
	}
	return p.producer.PublishSync(ctx, env.Topic, env.Key, env.Value)
}
