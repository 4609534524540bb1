// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package collector implements the HTTP ingestion surface: token issuance,
// single/batch/raw-log event acceptance, and health reporting. Accepted
// events are published onto the raw_logs bus topic for the Processor to
// pick up; the Collector itself never writes to storage.
package collector
