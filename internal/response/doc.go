// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package response runs playbooks against incoming Alerts: it matches
// trigger conditions, executes each matched playbook's actions in
// declaration order through a pluggable driver per action type, enforces
// per-action timeouts and failure isolation, and appends every outcome to
// an append-only run log.
package response
