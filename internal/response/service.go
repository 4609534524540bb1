// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package response

import (
	"context"
	"fmt"

	"github.com/wardenlog/wardenlog/internal/bus"
	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/models"
)

// Service consumes the alerts topic and runs every alert through a Runner,
// the bus-wiring counterpart of detection.Service on the other side of the
// alerts topic.
type Service struct {
	consumer *bus.Consumer
	runner   *Runner
	store    PlaybookStore
	log      *logging.EventLogger
}

// NewService wires consumer and runner into a runnable Service. store is
// kept alongside the runner so Reload can be triggered independent of the
// consume loop.
func NewService(consumer *bus.Consumer, runner *Runner, store PlaybookStore) *Service {
	return &Service{
		consumer: consumer,
		runner:   runner,
		store:    store,
		log:      logging.NewEventLogger(),
	}
}

// Run blocks consuming alerts until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.consumer.Run(ctx, bus.TopicAlerts, s.handle)
}

// Reload re-reads the playbook store, picking up playbook files added or
// edited since startup without interrupting the consume loop.
func (s *Service) Reload() error {
	return s.store.Reload()
}

func (s *Service) handle(ctx context.Context, key string, value []byte) error {
	var alert models.Alert
	if err := alert.UnmarshalBinary(value); err != nil {
		return fmt.Errorf("decode alert %s: %w", key, err)
	}

	entries, err := s.runner.Process(ctx, &alert)
	if err != nil {
		return fmt.Errorf("process alert %s: %w", alert.ID, err)
	}

	for _, entry := range entries {
		if entry.Status == models.RunStatusError || entry.Status == models.RunStatusTimeout {
			s.log.ErrorContext(ctx, "playbook action failed", "alert_id", alert.ID, "playbook_id", entry.PlaybookID,
				"action", entry.ActionName, "status", string(entry.Status), "err", entry.Error)
		}
	}
	return nil
}
