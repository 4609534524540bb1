// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Topic names for the three durable bus topics of spec.md §4.4. The prefix
// is configurable (BusConfig.ClientIDPrefix is reused as the subject
// prefix) so multiple pipeline deployments can share a NATS cluster.
const (
	TopicRawLogs      = "raw_logs"
	TopicEnrichedLogs = "enriched_logs"
	TopicAlerts       = "alerts"
)

// StreamConfig defines one durable, partitioned JetStream stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfigs returns the stream configuration for each of the
// three bus topics, each retaining messages for at least lookback.
func DefaultStreamConfigs(prefix string, lookback time.Duration) []StreamConfig {
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	mk := func(name, subject string) StreamConfig {
		return StreamConfig{
			Name:            prefix + "_" + name,
			Subjects:        []string{subject},
			MaxAge:          lookback,
			MaxBytes:        10 * 1024 * 1024 * 1024,
			MaxMsgs:         -1,
			DuplicateWindow: 2 * time.Minute,
			Replicas:        1,
		}
	}
	return []StreamConfig{
		mk("raw_logs", TopicRawLogs),
		mk("enriched_logs", TopicEnrichedLogs),
		mk("alerts", TopicAlerts),
	}
}

// JetStreamContext is the subset of jetstream.JetStream used by
// StreamInitializer, narrowed for testability.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamInitializer idempotently provisions (or updates) the bus topics
// before any producer or consumer starts, so publish/subscribe never race
// stream creation.
type StreamInitializer struct {
	js JetStreamContext
}

// NewStreamInitializer wraps a JetStream context for stream provisioning.
func NewStreamInitializer(js JetStreamContext) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	return &StreamInitializer{js: js}, nil
}

// EnsureStreams creates or updates every stream in cfgs. Safe to call on
// every startup.
func (s *StreamInitializer) EnsureStreams(ctx context.Context, cfgs []StreamConfig) error {
	for _, cfg := range cfgs {
		if _, err := s.ensureStream(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (s *StreamInitializer) ensureStream(ctx context.Context, cfg StreamConfig) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:        cfg.Name,
		Subjects:    cfg.Subjects,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		MaxBytes:    cfg.MaxBytes,
		MaxMsgs:     cfg.MaxMsgs,
		Duplicates:  cfg.DuplicateWindow,
		Replicas:    cfg.Replicas,
		Storage:     jetstream.FileStorage,
		AllowDirect: true,
		Discard:     jetstream.DiscardOld,
	}

	_, err := s.js.Stream(ctx, cfg.Name)
	if err == nil {
		stream, err := s.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", cfg.Name, err)
		}
		return stream, nil
	}

	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err := s.js.CreateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		return stream, nil
	}

	return nil, fmt.Errorf("check stream %s: %w", cfg.Name, err)
}
