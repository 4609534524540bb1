// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package collector

import (
	"context"
	"time"

	"github.com/wardenlog/wardenlog/internal/audit"
	"github.com/wardenlog/wardenlog/internal/auth"
	"github.com/wardenlog/wardenlog/internal/logging"
)

// Publisher is the subset of bus.Producer the Collector depends on,
// narrowed so handlers can be exercised against a fake in tests without a
// live NATS connection (the same narrowing bus.JetStreamContext applies to
// stream provisioning).
type Publisher interface {
	PublishSync(ctx context.Context, topic, key string, value []byte) error
}

// RateLimiter is the subset of cache.RedisRateLimiter the Collector depends
// on, narrowed for the same reason as Publisher.
type RateLimiter interface {
	AllowN(ctx context.Context, key string, n, limit int, window time.Duration) (allowed bool, remaining int, resetAt time.Time, err error)
}

// Quota names one of the three independent ingestion rate limits plus the
// login limit, each backed by its own RateLimiter key prefix.
type Quota struct {
	Limit  int
	Window time.Duration
}

// Config holds everything the Collector needs beyond its collaborators:
// the topic name to publish onto, the quotas per endpoint class, and the
// scopes required to call the ingestion endpoints.
type Config struct {
	RawLogsTopic   string
	TrustedProxies map[string]bool
	RequiredScope  string

	RequestQuota Quota
	BatchQuota   Quota
	EventQuota   Quota
	LoginQuota   Quota

	MaxBatchEvents int
	PublishTimeout time.Duration
}

// HealthCheck reports whether a dependency the Collector relies on is
// reachable. Returning an error marks that dependency unhealthy in the
// GET /health response without failing the request itself.
type HealthCheck func(ctx context.Context) error

// Collector is the HTTP ingestion service: it authenticates callers,
// enforces rate quotas, validates and parses submitted events, and
// publishes them onto the bus for the Processor to consume.
type Collector struct {
	cfg Config

	tokens   *auth.TokenManager
	users    auth.UserStore
	lockouts *auth.LockoutManager

	publisher   Publisher
	rateLimiter RateLimiter

	security *logging.SecurityLogger
	audit    *audit.Logger
	admin    AdminSurface

	healthChecks map[string]HealthCheck
}

// SetAuditLogger attaches the persisted audit trail. Optional: a nil
// logger (the default) leaves login/scope decisions in the structured
// security log only, without a queryable audit.Store entry.
func (c *Collector) SetAuditLogger(l *audit.Logger) {
	c.audit = l
}

// New builds a Collector. healthChecks maps a dependency name (as reported
// under GET /health's "services" field) to a probe function; both "cache"
// and "bus" are expected keys per spec.md §4.3 but any set is accepted.
func New(
	cfg Config,
	tokens *auth.TokenManager,
	users auth.UserStore,
	lockouts *auth.LockoutManager,
	publisher Publisher,
	rateLimiter RateLimiter,
	healthChecks map[string]HealthCheck,
) *Collector {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Collector{
		cfg:          cfg,
		tokens:       tokens,
		users:        users,
		lockouts:     lockouts,
		publisher:    publisher,
		rateLimiter:  rateLimiter,
		security:     logging.NewSecurityLogger(),
		healthChecks: healthChecks,
	}
}
