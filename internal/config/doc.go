// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package config loads and validates the pipeline's configuration: the
// Collector's HTTP server, JWT/rate-limit security settings, the message
// bus, time-partitioned storage, the shared Redis cache, the detection and
// response engines, the alert dispatcher, and logging. Load() merges
// built-in defaults, an optional YAML file, and environment variables, in
// that order, using koanf v2.
package config
