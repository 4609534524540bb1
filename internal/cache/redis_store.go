// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/wardenlog/wardenlog/internal/auth"
	"github.com/wardenlog/wardenlog/internal/logging"
)

// NewRedisClient dials the shared cache that backs ingest/login rate
// quotas and failed-login counters across every Collector replica.
func NewRedisClient(url string, maxConnections int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if maxConnections > 0 {
		opts.PoolSize = maxConnections
	}
	return redis.NewClient(opts), nil
}

// RedisRateLimiter is a fixed-window request counter shared across
// Collector instances via Redis, backing the ingest and login quotas
// (spec.md §4.1, §6).
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisRateLimiter builds a limiter over client. Counters are namespaced
// under prefix (default "ratelimit").
func NewRedisRateLimiter(client *redis.Client, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{client: client, prefix: prefix}
}

// Allow increments key's counter by one for the current fixed window and
// reports whether the request is within limit, the remaining quota, and
// when the window resets.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, resetAt time.Time, err error) {
	return l.AllowN(ctx, key, 1, limit, window)
}

// AllowN increments key's counter by n for the current fixed window. It
// backs quotas measured in units other than "one request" — spec.md §4.1's
// total-event-rate quota increments by the number of events in a batch
// rather than by one per HTTP request.
func (l *RedisRateLimiter) AllowN(ctx context.Context, key string, n, limit int, window time.Duration) (allowed bool, remaining int, resetAt time.Time, err error) {
	windowSeconds := int64(window / time.Second)
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	windowID := time.Now().Unix() / windowSeconds
	fullKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowID)

	count, err := l.client.IncrBy(ctx, fullKey, int64(n)).Result()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("incr rate limit counter: %w", err)
	}
	if count == int64(n) {
		if err := l.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return false, 0, time.Time{}, fmt.Errorf("set rate limit expiry: %w", err)
		}
	}

	remaining = limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	resetAt = time.Unix((windowID+1)*windowSeconds, 0)
	return count <= int64(limit), remaining, resetAt, nil
}

// RedisLockoutStore adapts the shared cache to auth.LockoutStore so
// failed-login counters survive Collector restarts and are visible to
// every replica. auth.LockoutStore's methods carry no error return, so a
// Redis outage fails open here: Get reports "no entry" and logs a warning
// rather than blocking logins on a cache outage. Sweep is a no-op because
// entries already expire via Redis TTL.
type RedisLockoutStore struct {
	client *redis.Client
	prefix string
}

// NewRedisLockoutStore builds a store over client. Entries are namespaced
// under prefix (default "lockout").
func NewRedisLockoutStore(client *redis.Client, prefix string) *RedisLockoutStore {
	if prefix == "" {
		prefix = "lockout"
	}
	return &RedisLockoutStore{client: client, prefix: prefix}
}

func (s *RedisLockoutStore) key(subject string) string {
	return fmt.Sprintf("%s:%s", s.prefix, subject)
}

// defaultLockoutTTL bounds how long an abandoned counter lives in Redis
// when the caller's configured window cannot be recovered from Set's
// signature; auth.LockoutManager always calls Set with a fresh entry
// immediately after this TTL would otherwise matter, so it only guards
// against entries orphaned by a crash mid-window.
const defaultLockoutTTL = 30 * time.Minute

// Get retrieves subject's failure counter. A Redis error or a missing key
// both report ok=false, matching auth.LockoutStore's fail-open contract.
func (s *RedisLockoutStore) Get(ctx context.Context, subject string) (*auth.LockoutEntry, bool) {
	raw, err := s.client.Get(ctx, s.key(subject)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.Warn().Err(err).Str("subject", subject).Msg("lockout store read failed, failing open")
		}
		return nil, false
	}
	var e auth.LockoutEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		logging.Warn().Err(err).Str("subject", subject).Msg("lockout entry corrupted, discarding")
		return nil, false
	}
	return &e, true
}

// Set stores entry with a bounded TTL so an abandoned counter expires on
// its own without requiring Sweep.
func (s *RedisLockoutStore) Set(ctx context.Context, entry *auth.LockoutEntry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		logging.Warn().Err(err).Str("subject", entry.Subject).Msg("lockout entry encode failed")
		return
	}
	if err := s.client.Set(ctx, s.key(entry.Subject), raw, defaultLockoutTTL).Err(); err != nil {
		logging.Warn().Err(err).Str("subject", entry.Subject).Msg("lockout store write failed, failing open")
	}
}

// Delete removes subject's counter.
func (s *RedisLockoutStore) Delete(ctx context.Context, subject string) {
	if err := s.client.Del(ctx, s.key(subject)).Err(); err != nil {
		logging.Warn().Err(err).Str("subject", subject).Msg("lockout store delete failed")
	}
}

// Sweep is a no-op: Redis TTL already reclaims expired entries.
func (s *RedisLockoutStore) Sweep(_ context.Context, _ time.Duration) int { return 0 }

var _ auth.LockoutStore = (*RedisLockoutStore)(nil)
