// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package bus implements the message bus contract of spec.md §4.4 on top of
// NATS JetStream, accessed through watermill: three durable, partitioned
// topics (raw_logs, enriched_logs, alerts), a producer with at-least-once
// delivery and circuit-breaker-protected publish, and a consumer with
// per-consumer-group durable cursors and manual offset commit (ack only
// after the downstream side effect succeeds).
package bus
