// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package detection

import (
	"context"
	"fmt"

	"github.com/wardenlog/wardenlog/internal/bus"
	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/models"
)

// Service consumes enriched_logs, runs each event through an Engine, and
// publishes the alerts it emits to the alerts topic for the dispatcher and
// response engine to pick up.
type Service struct {
	consumer *bus.Consumer
	producer *bus.Producer
	engine   *Engine
	store    RuleStore
	log      *logging.EventLogger
}

// NewService wires consumer, producer, and engine into a runnable Service.
// store is kept alongside the engine so Reload can be triggered independent
// of the consume loop (an OS signal or control-API call).
func NewService(consumer *bus.Consumer, producer *bus.Producer, engine *Engine, store RuleStore) *Service {
	return &Service{
		consumer: consumer,
		producer: producer,
		engine:   engine,
		store:    store,
		log:      logging.NewEventLogger(),
	}
}

// Run blocks consuming enriched_logs until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.consumer.Run(ctx, bus.TopicEnrichedLogs, s.handle)
}

// Reload re-reads the rule store, picking up rule files added or edited
// since startup without interrupting the consume loop.
func (s *Service) Reload() error {
	return s.store.Reload()
}

func (s *Service) handle(ctx context.Context, key string, value []byte) error {
	var event models.Event
	if err := event.UnmarshalBinary(value); err != nil {
		return fmt.Errorf("decode enriched event %s: %w", key, err)
	}

	for _, alert := range s.engine.Process(ctx, &event) {
		if err := s.publish(ctx, alert); err != nil {
			s.log.ErrorContext(ctx, "publish alert failed", "alert_id", alert.ID, "rule_id", alert.RuleID, "err", err.Error())
			return fmt.Errorf("publish alert %s: %w", alert.ID, err)
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, alert *models.Alert) error {
	payload, err := alert.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return s.producer.PublishSync(ctx, bus.TopicAlerts, alert.ID, payload)
}
