// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package services

import (
	"context"
)

// Runner matches the Run(ctx) error method shared by every pipeline
// bus-consumer service: eventprocessor.Processor, detection.Service,
// response.Service, and dispatcher.Service. Narrowed to avoid importing
// any of those packages here, which would create import cycles with
// cmd/server.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerService wraps a Runner as a supervised service. A single type
// covers every pipeline consumer rather than one bespoke wrapper per
// service, since they all expose the identical Run(ctx) error shape.
//
// Example usage:
//
//	svc := services.NewRunnerService("detection", detectionService)
//	tree.AddMessagingService(svc)
type RunnerService struct {
	runner Runner
	name   string
}

// NewRunnerService creates a new runner service wrapper identified by name
// in supervisor logs.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

// String implements fmt.Stringer for logging.
func (s *RunnerService) String() string {
	return s.name
}
