// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package eventprocessor

import (
	"testing"
	"time"

	"github.com/wardenlog/wardenlog/internal/models"
)

func TestNormalizeSetsWallClockWhenTimestampMissing(t *testing.T) {
	e := &models.Event{Source: "firewall", EventType: "login_failed"}
	before := time.Now().UTC()
	Normalize(e)
	if e.Timestamp.Before(before) || e.Timestamp.Location() != time.UTC {
		t.Errorf("expected wall-clock UTC timestamp, got %v", e.Timestamp)
	}
}

func TestNormalizeConvertsOffsetTimestampToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	e := &models.Event{
		Source: "firewall", EventType: "login_failed",
		Timestamp: time.Date(2026, 7, 15, 12, 0, 0, 0, loc),
	}
	Normalize(e)
	if e.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", e.Timestamp.Location())
	}
	if e.Timestamp.Hour() != 7 {
		t.Errorf("expected 12:00 +5 to normalize to 07:00 UTC, got %v", e.Timestamp)
	}
}

func TestNormalizeDefaultsMissingFields(t *testing.T) {
	e := &models.Event{}
	Normalize(e)
	if e.Source != "unknown" || e.EventType != "unknown" {
		t.Errorf("expected defaulted source/event_type, got %q/%q", e.Source, e.EventType)
	}
	if e.Data == nil {
		t.Errorf("expected Data to be initialized")
	}
}
