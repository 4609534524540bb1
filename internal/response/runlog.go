// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package response

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/models"
)

// RunLogStore is the append-only playbook run log of spec.md §4.8, backed
// by the same embedded BadgerDB the WAL uses for its own durable writes.
// Keys are the entry's RFC3339Nano timestamp plus a disambiguating
// sequence number, so badger's natural key ordering is chronological and
// RecentEntries can read the newest N without a secondary index.
type RunLogStore struct {
	db *badger.DB
}

const runLogKeyPrefix = "run:"

// OpenRunLogStore opens (or creates) the run log at path.
func OpenRunLogStore(path string) (*RunLogStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	logging.Info().Str("path", path).Msg("playbook run log opened")
	return &RunLogStore{db: db}, nil
}

// Close releases the underlying BadgerDB handle.
func (s *RunLogStore) Close() error { return s.db.Close() }

// Append writes one run log entry. entries are immutable once written;
// there is no Update or Delete.
func (s *RunLogStore) Append(entry models.RunLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal run log entry: %w", err)
	}
	key := []byte(fmt.Sprintf("%s%s-%s-%s", runLogKeyPrefix, entry.At.UTC().Format("20060102T150405.000000000"), entry.AlertID, entry.ActionName))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// Recent returns up to limit of the most recently appended entries,
// newest first.
func (s *RunLogStore) Recent(limit int) ([]models.RunLogEntry, error) {
	var entries []models.RunLogEntry
	prefix := []byte(runLogKeyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				var entry models.RunLogEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
