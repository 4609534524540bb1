// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package dispatcher

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/wardenlog/wardenlog/internal/models"
)

// retryingChannel wraps a Channel with bounded exponential backoff and a
// circuit breaker, the same combination the Processor uses around its
// index write and the Response engine uses around its drivers. A channel
// that is circuit-broken or exhausts its retries is a permanent failure
// for that alert; it never blocks delivery to other channels.
type retryingChannel struct {
	inner       Channel
	maxAttempts uint64
	breaker     *gobreaker.CircuitBreaker[struct{}]
}

func newRetryingChannel(inner Channel, maxAttempts int) *retryingChannel {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &retryingChannel{
		inner:       inner,
		maxAttempts: uint64(maxAttempts),
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "dispatcher." + inner.Name(),
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (r *retryingChannel) Name() string { return r.inner.Name() }

func (r *retryingChannel) Send(ctx context.Context, alert *models.Alert) error {
	_, err := r.breaker.Execute(func() (struct{}, error) {
		policy := backoff.WithContext(backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(), r.maxAttempts-1), ctx)
		return struct{}{}, backoff.Retry(func() error {
			return r.inner.Send(ctx, alert)
		}, policy)
	})
	return err
}
