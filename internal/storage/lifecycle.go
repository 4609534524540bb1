// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/wardenlog/wardenlog/internal/config"
	"github.com/wardenlog/wardenlog/internal/logging"
)

// Tier is a lifecycle stage an index bucket moves through.
type Tier string

const (
	TierHot    Tier = "hot"
	TierWarm   Tier = "warm"
	TierCold   Tier = "cold"
	TierDelete Tier = "delete"
)

// LifecyclePolicy is the declarative hot -> warm -> cold -> delete schedule
// of spec.md §4.6, expressed as an age in days since the bucket's month
// ended. The storage layer only makes the bucket's naming, typed-field
// mapping, and monthly rotation externally observable (spec.md §4.6); the
// tiers themselves are bookkeeping DuckDB has no native notion of, so Sweep
// only acts on the Delete threshold and logs the others.
type LifecyclePolicy struct {
	WarmAfter   time.Duration
	ColdAfter   time.Duration
	DeleteAfter time.Duration
}

// PolicyFromConfig builds a LifecyclePolicy from the storage section of the
// loaded configuration.
func PolicyFromConfig(cfg config.StorageConfig) LifecyclePolicy {
	return LifecyclePolicy{
		WarmAfter:   time.Duration(cfg.HotDays) * 24 * time.Hour,
		ColdAfter:   time.Duration(cfg.WarmDays+cfg.HotDays) * 24 * time.Hour,
		DeleteAfter: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
	}
}

// BucketTier classifies a logs-YYYY.MM bucket's age (relative to now) into
// a lifecycle tier under policy. age is the time since the bucket's month
// ended.
func BucketTier(age time.Duration, policy LifecyclePolicy) Tier {
	switch {
	case age >= policy.DeleteAfter:
		return TierDelete
	case age >= policy.ColdAfter:
		return TierCold
	case age >= policy.WarmAfter:
		return TierWarm
	default:
		return TierHot
	}
}

// Sweep drops every logs-<prefix> bucket whose age has crossed
// policy.DeleteAfter, and logs the tier of every other bucket so operators
// can observe the declared lifecycle taking effect.
func (idx *Index) Sweep(ctx context.Context, policy LifecyclePolicy) error {
	tables, err := idx.matchingTables(ctx, idx.cfg.IndexPrefix+"-*")
	if err != nil {
		return fmt.Errorf("sweep: list buckets: %w", err)
	}

	now := time.Now().UTC()
	for _, table := range tables {
		bucketEnd, ok := bucketEndFromTableName(idx.cfg.IndexPrefix, table)
		if !ok {
			continue
		}
		age := now.Sub(bucketEnd)
		tier := BucketTier(age, policy)

		if tier == TierDelete {
			if _, err := idx.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
				return fmt.Errorf("sweep: drop %s: %w", table, err)
			}
			idx.mu.Lock()
			delete(idx.ensured, table)
			idx.mu.Unlock()
			logging.Info().Str("table", table).Msg("storage: bucket past retention, dropped")
			continue
		}
		logging.Debug().Str("table", table).Str("tier", string(tier)).Dur("age", age).Msg("storage: bucket lifecycle tier")
	}
	return nil
}

func bucketEndFromTableName(prefix, table string) (time.Time, bool) {
	var year, month int
	_, err := fmt.Sscanf(table, prefix+"-%04d.%02d", &year, &month)
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 1, 0), true
}

// StartSweeper runs Sweep on interval until ctx is canceled. Intended to be
// started once at process startup.
func (idx *Index) StartSweeper(ctx context.Context, policy LifecyclePolicy, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := idx.Sweep(ctx, policy); err != nil {
				logging.Error().Err(err).Msg("storage: lifecycle sweep failed")
			}
		}
	}
}
