// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package websocket

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/models"
)

// AlertConsumer matches bus.Consumer's Run method, narrowed so this package
// never imports internal/bus (which would create an import cycle with
// cmd/server's wiring).
type AlertConsumer interface {
	Run(ctx context.Context, topic string, handler func(ctx context.Context, key string, value []byte) error) error
}

// NATSSubscriber bridges the alerts bus topic to WebSocket broadcasts. It
// subscribes to bus.TopicAlerts and forwards every detection.Service-raised
// alert to the Hub, feeding the live GET /ws stream.
type NATSSubscriber struct {
	hub      *Hub
	consumer AlertConsumer
	topic    string
}

// NewNATSSubscriber creates a new alerts-to-WebSocket bridge. topic is
// normally bus.TopicAlerts.
func NewNATSSubscriber(hub *Hub, consumer AlertConsumer, topic string) *NATSSubscriber {
	return &NATSSubscriber{hub: hub, consumer: consumer, topic: topic}
}

// Run subscribes to the alerts topic and broadcasts each decoded alert until
// ctx is canceled. Implements the Runner shape used by
// supervisor/services.RunnerService.
func (s *NATSSubscriber) Run(ctx context.Context) error {
	logging.Info().Str("topic", s.topic).Msg("alert websocket bridge started")
	return s.consumer.Run(ctx, s.topic, s.handleMessage)
}

func (s *NATSSubscriber) handleMessage(_ context.Context, _ string, value []byte) error {
	var alert models.Alert
	if err := json.Unmarshal(value, &alert); err != nil {
		logging.Warn().Err(err).Msg("failed to unmarshal alert for websocket broadcast")
		return nil
	}
	s.hub.BroadcastAlert(&alert)
	return nil
}
