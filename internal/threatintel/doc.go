// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package threatintel loads flat indicator-of-compromise lists (IPs,
// domains, file hashes) from disk and answers membership queries for the
// Processor's enrichment step. A bloom filter pre-screens lookups against
// large lists before confirming against the exact set, the same two-stage
// shape the teacher's dedup caches use for membership testing.
package threatintel
