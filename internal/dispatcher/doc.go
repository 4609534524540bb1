// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package dispatcher implements the Alert Dispatcher: the last stage of
// the pipeline, which fans a detected Alert out to operator-facing
// channels (email, Slack, Discord, Telegram, a generic webhook) according
// to a severity-to-channel routing table.
//
// Each channel send is wrapped in bounded retry with exponential backoff;
// a channel that exhausts its retries is recorded as a permanent failure
// for that alert and does not block delivery to the alert's other routed
// channels, nor the processing of subsequent alerts.
package dispatcher
