// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/logging"
)

// DuckDBStore implements Store against a shared *sql.DB, the same
// embedded-DuckDB connection internal/storage indexes events into,
// giving the audit trail the same durable-file-tree deployment model as
// the rest of the pipeline.
type DuckDBStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewDuckDBStore wraps db. CreateTable must be called once during
// startup before Save is used.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the audit_events table and its indexes if absent.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			outcome TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			actor_type TEXT NOT NULL,
			actor_name TEXT,
			actor_roles JSON,
			actor_session_id TEXT,
			actor_auth_method TEXT,
			target_id TEXT,
			target_type TEXT,
			target_name TEXT,
			source_ip TEXT NOT NULL,
			source_user_agent TEXT,
			action TEXT NOT NULL,
			description TEXT NOT NULL,
			metadata JSON,
			correlation_id TEXT,
			request_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(type);
		CREATE INDEX IF NOT EXISTS idx_audit_actor_id ON audit_events(actor_id);
		CREATE INDEX IF NOT EXISTS idx_audit_source_ip ON audit_events(source_ip);
	`
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute audit schema statement: %w", err)
		}
	}
	logging.Info().Msg("audit_events table created/verified")
	return nil
}

func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rolesJSON, err := json.Marshal(event.Actor.Roles)
	if err != nil {
		return fmt.Errorf("marshal actor roles: %w", err)
	}
	var targetID, targetType, targetName *string
	if event.Target != nil {
		targetID, targetType, targetName = &event.Target.ID, &event.Target.Type, &event.Target.Name
	}
	var metadata *string
	if len(event.Metadata) > 0 {
		m := string(event.Metadata)
		metadata = &m
	}

	const insert = `
		INSERT INTO audit_events (
			id, timestamp, type, severity, outcome,
			actor_id, actor_type, actor_name, actor_roles, actor_session_id, actor_auth_method,
			target_id, target_type, target_name,
			source_ip, source_user_agent,
			action, description, metadata,
			correlation_id, request_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, insert,
		event.ID, event.Timestamp, string(event.Type), string(event.Severity), string(event.Outcome),
		event.Actor.ID, event.Actor.Type, event.Actor.Name, string(rolesJSON), event.Actor.SessionID, event.Actor.AuthMethod,
		targetID, targetType, targetName,
		event.Source.IPAddress, event.Source.UserAgent,
		event.Action, event.Description, metadata,
		event.CorrelationID, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("save audit event: %w", err)
	}
	return nil
}

func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, timestamp, type, severity, outcome,
			actor_id, actor_type, actor_name,
			CAST(actor_roles AS VARCHAR), actor_session_id, actor_auth_method,
			target_id, target_type, target_name,
			source_ip, source_user_agent,
			action, description, CAST(metadata AS VARCHAR),
			correlation_id, request_id
		FROM audit_events
	`
	var conditions []string
	var args []interface{}

	if filter.ActorID != "" {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.SourceIP != "" {
		conditions = append(conditions, "source_ip = ?")
		args = append(args, filter.SourceIP)
	}
	if filter.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, *filter.EndTime)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var actorRoles, metadata sql.NullString
		var targetID, targetType, targetName sql.NullString

		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.Severity, &e.Outcome,
			&e.Actor.ID, &e.Actor.Type, &e.Actor.Name,
			&actorRoles, &e.Actor.SessionID, &e.Actor.AuthMethod,
			&targetID, &targetType, &targetName,
			&e.Source.IPAddress, &e.Source.UserAgent,
			&e.Action, &e.Description, &metadata,
			&e.CorrelationID, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		if actorRoles.Valid {
			_ = json.Unmarshal([]byte(actorRoles.String), &e.Actor.Roles)
		}
		if targetID.Valid {
			e.Target = &Target{ID: targetID.String, Type: targetType.String, Name: targetName.String}
		}
		if metadata.Valid {
			e.Metadata = json.RawMessage(metadata.String)
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, e.Type) {
			continue
		}
		if len(filter.Severities) > 0 && !containsSeverity(filter.Severities, e.Severity) {
			continue
		}
		if len(filter.Outcomes) > 0 && !containsOutcome(filter.Outcomes, e.Outcome) {
			continue
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT COUNT(*) FROM audit_events"
	var conditions []string
	var args []interface{}

	if filter.ActorID != "" {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.SourceIP != "" {
		conditions = append(conditions, "source_ip = ?")
		args = append(args, filter.SourceIP)
	}
	if filter.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, *filter.EndTime)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return count, nil
}

func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < ?", olderThan)
	if err != nil {
		return 0, fmt.Errorf("delete expired audit events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
