// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package audit is an append-only audit trail for security decisions
// made about operators of the pipeline itself, distinct from the Alerts
// the detection engine raises about the events it ingests.
//
// A Logger buffers Log calls onto a channel and persists them from a
// background goroutine, so auditing never adds latency to the request
// path that produced the decision. The default Store is DuckDBStore,
// sharing the same embedded-file database internal/storage indexes
// events into; MemoryStore exists for tests and single-process
// development runs.
//
// internal/auth calls LogAuthSuccess/LogAuthFailure/LogAuthLockout/
// LogLogout on every login attempt and lockout. internal/collector calls
// LogAuthzDenied whenever a bearer token's scopes don't cover the
// requested resource. The rules/playbooks reload endpoints call
// LogRuleReload/LogAdminAction around the hot-reload control endpoints
// of SPEC_FULL.md §4.
package audit
