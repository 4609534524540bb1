// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/wardenlog/wardenlog/internal/config"
	"github.com/wardenlog/wardenlog/internal/models"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(config.StorageConfig{
		DataDir:       t.TempDir(),
		IndexPrefix:   "logs",
		HotDays:       7,
		WarmDays:      30,
		ColdDays:      90,
		RetentionDays: 365,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := idx.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return idx
}

func TestPutAndSearchByTerm(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	ts := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)
	event := &models.Event{
		ID:        "evt-1",
		Source:    "firewall",
		EventType: "log",
		Timestamp: ts,
		Data:      map[string]interface{}{"status": float64(403)},
	}
	if err := idx.Put(ctx, event); err != nil {
		t.Fatalf("Put: %v", err)
	}

	result, err := idx.Search(ctx, "logs-*", Query{Term: &TermQuery{Field: "source", Value: "firewall"}},
		TimeRange{From: ts.Add(-time.Hour), To: ts.Add(time.Hour)}, 10, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}
	if result.Events[0].ID != "evt-1" {
		t.Errorf("unexpected event id %q", result.Events[0].ID)
	}
}

func TestPutIsIdempotentOnID(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	ts := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	event := &models.Event{ID: "evt-2", Source: "vpn", EventType: "log", Timestamp: ts,
		Data: map[string]interface{}{"user": "alice"}}
	if err := idx.Put(ctx, event); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	event.Data["user"] = "bob"
	if err := idx.Put(ctx, event); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	result, err := idx.Search(ctx, "logs-*", Query{Term: &TermQuery{Field: "id", Value: "evt-2"}},
		TimeRange{From: ts.Add(-time.Hour), To: ts.Add(time.Hour)}, 10, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected exactly 1 row after re-index, got %d", len(result.Events))
	}
	if result.Events[0].Data["user"] != "bob" {
		t.Errorf("expected latest value to win, got %v", result.Events[0].Data["user"])
	}
}

func TestSearchRangeAcrossMonthlyBuckets(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	july := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	august := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)
	for _, e := range []*models.Event{
		{ID: "e-july", Source: "ids", EventType: "log", Timestamp: july, Data: map[string]interface{}{}},
		{ID: "e-august", Source: "ids", EventType: "log", Timestamp: august, Data: map[string]interface{}{}},
	} {
		if err := idx.Put(ctx, e); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	result, err := idx.Search(ctx, "logs-*", Query{Term: &TermQuery{Field: "source", Value: "ids"}},
		TimeRange{From: july.Add(-time.Hour), To: august.Add(time.Hour)}, 10, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Events) != 2 {
		t.Fatalf("expected 2 events spanning both buckets, got %d", len(result.Events))
	}
	if result.Events[0].ID != "e-july" {
		t.Errorf("expected ascending order by timestamp, got %q first", result.Events[0].ID)
	}
}

func TestBucketTier(t *testing.T) {
	policy := LifecyclePolicy{
		WarmAfter:   7 * 24 * time.Hour,
		ColdAfter:   30 * 24 * time.Hour,
		DeleteAfter: 365 * 24 * time.Hour,
	}
	cases := []struct {
		age  time.Duration
		want Tier
	}{
		{time.Hour, TierHot},
		{10 * 24 * time.Hour, TierWarm},
		{40 * 24 * time.Hour, TierCold},
		{400 * 24 * time.Hour, TierDelete},
	}
	for _, c := range cases {
		if got := BucketTier(c.age, policy); got != c.want {
			t.Errorf("BucketTier(%v) = %q, want %q", c.age, got, c.want)
		}
	}
}

func TestSweepDropsBucketsPastRetention(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	old := time.Now().UTC().AddDate(-2, 0, 0)
	if err := idx.Put(ctx, &models.Event{ID: "old-evt", Source: "s", EventType: "log", Timestamp: old,
		Data: map[string]interface{}{}}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	policy := LifecyclePolicy{WarmAfter: 7 * 24 * time.Hour, ColdAfter: 30 * 24 * time.Hour, DeleteAfter: 365 * 24 * time.Hour}
	if err := idx.Sweep(ctx, policy); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	tables, err := idx.matchingTables(ctx, "logs-*")
	if err != nil {
		t.Fatalf("matchingTables: %v", err)
	}
	for _, tbl := range tables {
		if tbl == tableName("logs", old) {
			t.Errorf("expected bucket %q to be dropped by Sweep", tbl)
		}
	}
}
