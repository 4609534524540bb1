// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package detection evaluates enriched events against a hot-reloadable rule
// store and emits Alerts. Four rule kinds share one evaluation loop: custom
// (dotted-path condition trees), sigma (the Sigma selection/condition
// dialect), yara (compiled string-matching rulesets), and anomaly
// (per-event_type statistical outlier scoring).
package detection
