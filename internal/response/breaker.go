// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package response

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// newDriverBreaker trips after 5 consecutive failures and stays open for 30s
// before allowing a half-open probe, the same shape as the Processor's
// index-write breaker.
func newDriverBreaker(name string) *gobreaker.CircuitBreaker[Result] {
	return gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}
