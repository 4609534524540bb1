// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package eventprocessor

import (
	"time"

	"github.com/wardenlog/wardenlog/internal/models"
)

// Normalize ensures Timestamp is a UTC instant and fills missing required
// fields with defaults, per the Processor's second pipeline step.
func Normalize(e *models.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	} else {
		e.Timestamp = e.Timestamp.UTC()
	}

	if e.Source == "" {
		e.Source = "unknown"
	}
	if e.EventType == "" {
		e.EventType = "unknown"
	}
	if e.Data == nil {
		e.Data = make(map[string]interface{})
	}
}
