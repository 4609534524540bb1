// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package metrics provides Prometheus instrumentation for the ingest-process-
// detect-respond pipeline: Collector HTTP throughput, bus publish/consume
// latency, Processor enrichment/index performance, Detection evaluator
// outcomes, and Response/Dispatcher delivery results. Metrics are exposed at
// /metrics in Prometheus text format.
package metrics
