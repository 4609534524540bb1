// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package dispatcher

import (
	"context"
	"fmt"

	"github.com/wardenlog/wardenlog/internal/bus"
	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/models"
)

// Service consumes the alerts topic and fans every alert out to its
// routed channels, the bus-wiring counterpart of detection.Service and
// response.Service on the same topic.
type Service struct {
	consumer   *bus.Consumer
	dispatcher *Dispatcher
	log        *logging.EventLogger
}

// NewService wires a consumer and a Dispatcher into a runnable Service.
func NewService(consumer *bus.Consumer, dispatcher *Dispatcher) *Service {
	return &Service{
		consumer:   consumer,
		dispatcher: dispatcher,
		log:        logging.NewEventLogger(),
	}
}

// Run blocks consuming alerts until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.consumer.Run(ctx, bus.TopicAlerts, s.handle)
}

func (s *Service) handle(ctx context.Context, key string, value []byte) error {
	var alert models.Alert
	if err := alert.UnmarshalBinary(value); err != nil {
		return fmt.Errorf("decode alert %s: %w", key, err)
	}

	results := s.dispatcher.Dispatch(ctx, &alert)
	for channel, err := range results {
		if err != nil {
			s.log.ErrorContext(ctx, "alert dispatch failed", "alert_id", alert.ID,
				"channel", channel, "severity", string(alert.Severity), "err", err)
		}
	}
	// A channel failure is permanent-but-isolated (see retryingChannel); it
	// never fails the overall handle, so the alerts offset always commits.
	return nil
}
