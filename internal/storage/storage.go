// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/config"
	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/models"
)

// Index is the time-partitioned event index described by spec.md §4.6: one
// table per logs-YYYY.MM bucket, typed columns for the fields every event
// carries, and a JSON column for the dynamic data/enriched payloads.
type Index struct {
	db  *sql.DB
	cfg config.StorageConfig

	mu      sync.Mutex
	ensured map[string]bool // table name -> template applied
}

// New opens (creating if absent) the embedded DuckDB file under
// cfg.DataDir and prepares the index for use.
func New(cfg config.StorageConfig) (*Index, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage data dir: %w", err)
	}
	dbPath := filepath.Join(cfg.DataDir, "index.duckdb")

	conn, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	return &Index{
		db:      conn,
		cfg:     cfg,
		ensured: make(map[string]bool),
	}, nil
}

// Close checkpoints the WAL and closes the underlying connection.
func (idx *Index) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := idx.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("checkpoint before close failed")
	}
	return idx.db.Close()
}

// Ping reports whether the underlying database is reachable, for use as a
// Collector health check.
func (idx *Index) Ping(ctx context.Context) error {
	return idx.db.PingContext(ctx)
}

// tableName returns the logs-YYYY.MM table name (quoted identifier, since
// DuckDB table names may contain a literal dot) for the bucket t falls in.
func tableName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%04d.%02d", prefix, t.Year(), int(t.Month()))
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

// stableColumns are the typed fields every event carries, pre-declared so
// the template's mapping is stable across months (spec.md §4.6).
const createTableTemplate = `
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_timestamp TIMESTAMP NOT NULL,
	data JSON,
	enriched JSON,
	indexed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const createTableIndexes = `
CREATE INDEX IF NOT EXISTS %s ON %s (source);
CREATE INDEX IF NOT EXISTS %s ON %s (event_type);
CREATE INDEX IF NOT EXISTS %s ON %s (event_timestamp);`

// EnsureTemplate idempotently pre-declares the bucket t falls in, so its
// typed mapping exists before the first write lands (spec.md §4.6:
// `ensureTemplate(pattern, mappings, lifecyclePolicy)`). The mapping
// itself is fixed (stable typed columns plus dynamic data/enriched JSON),
// so unlike the spec's abstract signature this only needs the bucket.
func (idx *Index) EnsureTemplate(ctx context.Context, t time.Time) error {
	_, err := idx.ensureTemplate(ctx, t)
	return err
}

// ensureTemplate idempotently creates the table for t's bucket, including
// its secondary indexes. Safe to call on every write; the second and later
// calls for an already-created table are a no-op tracked in memory.
func (idx *Index) ensureTemplate(ctx context.Context, t time.Time) (string, error) {
	table := tableName(idx.cfg.IndexPrefix, t)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.ensured[table] {
		return table, nil
	}

	quoted := quoteIdent(table)
	if _, err := idx.db.ExecContext(ctx, fmt.Sprintf(createTableTemplate, quoted)); err != nil {
		return "", fmt.Errorf("ensure template %s: %w", table, err)
	}

	safe := safeIndexSuffix(table)
	stmt := fmt.Sprintf(createTableIndexes,
		quoteIdent("idx_"+safe+"_source"), quoted,
		quoteIdent("idx_"+safe+"_event_type"), quoted,
		quoteIdent("idx_"+safe+"_timestamp"), quoted)
	if _, err := idx.db.ExecContext(ctx, stmt); err != nil {
		return "", fmt.Errorf("create indexes on %s: %w", table, err)
	}

	idx.ensured[table] = true
	return table, nil
}

// safeIndexSuffix turns a logs-2026.07 table name into an identifier-safe
// suffix (logs_2026_07) for naming its secondary indexes.
func safeIndexSuffix(table string) string {
	out := make([]rune, 0, len(table))
	for _, r := range table {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Put writes doc under indexName's bucket, keyed by id. Re-indexing an
// existing id replaces it (spec.md §4.6: idempotent on id); events are
// otherwise never updated after index write (spec.md §3).
func (idx *Index) Put(ctx context.Context, doc *models.Event) error {
	if doc.ID == "" {
		return fmt.Errorf("storage: event id is required")
	}
	table, err := idx.ensureTemplate(ctx, doc.Timestamp)
	if err != nil {
		return err
	}

	data, err := marshalJSONColumn(doc.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}
	enriched, err := marshalJSONColumn(doc.Enriched)
	if err != nil {
		return fmt.Errorf("marshal enriched: %w", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source, event_type, event_timestamp, data, enriched)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			event_type = EXCLUDED.event_type,
			event_timestamp = EXCLUDED.event_timestamp,
			data = EXCLUDED.data,
			enriched = EXCLUDED.enriched`, quoteIdent(table))

	_, err = idx.db.ExecContext(ctx, stmt, doc.ID, doc.Source, doc.EventType, doc.Timestamp, data, enriched)
	if err != nil {
		return fmt.Errorf("put into %s: %w", table, err)
	}
	return nil
}

func marshalJSONColumn(m map[string]interface{}) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
