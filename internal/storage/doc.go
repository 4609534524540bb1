// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package storage implements the time-partitioned index/storage interface:
// monthly logs-YYYY.MM tables with typed columns for stable fields and a
// JSON column for the dynamic data/enriched payloads, a structured query
// API, and a declarative hot/warm/cold/delete lifecycle sweep. Backed by
// an embedded DuckDB file standing in for the reference deployment's
// Elasticsearch cluster.
package storage
