// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package eventprocessor implements the Processor: the consumer-group
// member that turns raw, Collector-accepted events into enriched, indexed,
// detectable ones.
//
// For each message read from the raw_logs topic:
//
//  1. Deduplicate: a fingerprint (source, event_type, canonicalized data
//     subset) is looked up in a short-TTL LRU cache; a hit drops the event
//     and commits the offset without further work.
//  2. Normalize: timestamps are coerced to UTC and missing fields default.
//  3. Enrich: GeoIP, reverse-DNS, and threat-intel lookups attach
//     enriched.* fields; enrichment failures are recorded in
//     enriched.errors and never fail the event.
//  4. Index: the event is written to its logs-YYYY.MM bucket, retried with
//     jittered exponential backoff; exhausted retries route to the DLQ.
//  5. Detect: the enriched event is published to enriched_logs for the
//     detection engine to consume.
//  6. Commit: the raw_logs offset is committed only after the index write
//     (or DLQ routing) succeeds, giving at-least-once delivery with a
//     bounded duplicate window.
//
// An optional embedded NATS/JetStream server (EmbeddedServer) is available
// for single-instance deployments that don't run an external broker.
package eventprocessor
