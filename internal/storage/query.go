// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/models"
)

// TimeRange bounds a Search to the buckets (and rows) whose event_timestamp
// falls in [From, To].
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Query is the structured query language spec.md §4.6 names: term, range,
// match, and bool (must/should/must_not) composition. Exactly one of the
// variant fields should be set on a leaf Query; Bool composes sub-queries.
type Query struct {
	Term  *TermQuery
	Range *RangeQuery
	Match *MatchQuery
	Bool  *BoolQuery
}

// TermQuery matches Field exactly equal to Value.
type TermQuery struct {
	Field string
	Value interface{}
}

// RangeQuery matches Field within [Gte, Lte]; either bound may be nil.
type RangeQuery struct {
	Field string
	Gte   interface{}
	Lte   interface{}
}

// MatchQuery does a case-insensitive substring match on Field.
type MatchQuery struct {
	Field string
	Value string
}

// BoolQuery combines sub-queries: all of Must, at least one of Should (when
// non-empty), and none of MustNot.
type BoolQuery struct {
	Must    []Query
	Should  []Query
	MustNot []Query
}

// SearchResult is one page of a Search call.
type SearchResult struct {
	Events []*models.Event
	Cursor string // opaque; pass back to Search to fetch the next page, "" when exhausted
}

// resolveColumn maps a dotted field name onto a SQL expression. The four
// stable columns are addressed directly; anything under "data." or
// "enriched." is a json_extract_string into the matching JSON column;
// anything else defaults to a lookup under data.
func resolveColumn(field string) string {
	switch field {
	case "id", "source", "event_type":
		return field
	case "timestamp":
		return "event_timestamp"
	}
	switch {
	case strings.HasPrefix(field, "data."):
		return fmt.Sprintf("json_extract_string(data, '$.%s')", strings.TrimPrefix(field, "data."))
	case strings.HasPrefix(field, "enriched."):
		return fmt.Sprintf("json_extract_string(enriched, '$.%s')", strings.TrimPrefix(field, "enriched."))
	default:
		return fmt.Sprintf("json_extract_string(data, '$.%s')", field)
	}
}

// compile lowers q into a SQL boolean expression plus its positional args.
func compile(q Query) (string, []interface{}, error) {
	switch {
	case q.Term != nil:
		return fmt.Sprintf("%s = ?", resolveColumn(q.Term.Field)), []interface{}{q.Term.Value}, nil
	case q.Match != nil:
		return fmt.Sprintf("%s ILIKE ?", resolveColumn(q.Match.Field)), []interface{}{"%" + q.Match.Value + "%"}, nil
	case q.Range != nil:
		return compileRange(*q.Range)
	case q.Bool != nil:
		return compileBool(*q.Bool)
	default:
		return "", nil, fmt.Errorf("storage: empty query")
	}
}

func compileRange(r RangeQuery) (string, []interface{}, error) {
	col := resolveColumn(r.Field)
	var clauses []string
	var args []interface{}
	if r.Gte != nil {
		clauses = append(clauses, col+" >= ?")
		args = append(args, r.Gte)
	}
	if r.Lte != nil {
		clauses = append(clauses, col+" <= ?")
		args = append(args, r.Lte)
	}
	if len(clauses) == 0 {
		return "", nil, fmt.Errorf("storage: range query on %q has no bounds", r.Field)
	}
	return "(" + strings.Join(clauses, " AND ") + ")", args, nil
}

func compileBool(b BoolQuery) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}

	if and, a, err := joinAll(b.Must, " AND "); err != nil {
		return "", nil, err
	} else if and != "" {
		clauses = append(clauses, and)
		args = append(args, a...)
	}
	if or, a, err := joinAll(b.Should, " OR "); err != nil {
		return "", nil, err
	} else if or != "" {
		clauses = append(clauses, or)
		args = append(args, a...)
	}
	for _, sub := range b.MustNot {
		sql, a, err := compile(sub)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, "NOT ("+sql+")")
		args = append(args, a...)
	}
	if len(clauses) == 0 {
		return "", nil, fmt.Errorf("storage: empty bool query")
	}
	return "(" + strings.Join(clauses, " AND ") + ")", args, nil
}

func joinAll(qs []Query, sep string) (string, []interface{}, error) {
	if len(qs) == 0 {
		return "", nil, nil
	}
	var parts []string
	var args []interface{}
	for _, sub := range qs {
		sql, a, err := compile(sub)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, a...)
	}
	return "(" + strings.Join(parts, sep) + ")", args, nil
}

// Search runs query against every table matching indexPattern (a glob such
// as "logs-2026.*" or "logs-*") whose bucket overlaps timeRange, ordered by
// event_timestamp ascending, paginated by limit/cursor.
func (idx *Index) Search(ctx context.Context, indexPattern string, query Query, timeRange TimeRange, limit int, cursor string) (*SearchResult, error) {
	if limit <= 0 {
		limit = 100
	}
	offset, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	tables, err := idx.matchingTables(ctx, indexPattern)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return &SearchResult{Events: nil, Cursor: ""}, nil
	}

	whereSQL, whereArgs, err := compile(query)
	if err != nil {
		return nil, err
	}

	var unionParts []string
	var args []interface{}
	for _, table := range tables {
		unionParts = append(unionParts, fmt.Sprintf(
			`SELECT id, source, event_type, event_timestamp, data, enriched FROM %s
			 WHERE %s AND event_timestamp >= ? AND event_timestamp <= ?`,
			quoteIdent(table), whereSQL))
		args = append(args, whereArgs...)
		args = append(args, timeRange.From, timeRange.To)
	}

	sqlText := strings.Join(unionParts, " UNION ALL ") +
		" ORDER BY event_timestamp ASC LIMIT ? OFFSET ?"
	args = append(args, limit+1, offset)

	rows, err := idx.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var e models.Event
		var dataRaw, enrichedRaw string
		if err := rows.Scan(&e.ID, &e.Source, &e.EventType, &e.Timestamp, &dataRaw, &enrichedRaw); err != nil {
			return nil, fmt.Errorf("search scan: %w", err)
		}
		if dataRaw != "" {
			_ = json.Unmarshal([]byte(dataRaw), &e.Data)
		}
		if enrichedRaw != "" {
			_ = json.Unmarshal([]byte(enrichedRaw), &e.Enriched)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(events) > limit {
		events = events[:limit]
		nextCursor = encodeCursor(offset + limit)
	}
	return &SearchResult{Events: events, Cursor: nextCursor}, nil
}

// matchingTables lists the tables currently in the catalog whose name
// matches the glob pattern (only "*" is supported as a wildcard).
func (idx *Index) matchingTables(ctx context.Context, pattern string) ([]string, error) {
	like := strings.ReplaceAll(pattern, "*", "%")
	rows, err := idx.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_name LIKE ? ORDER BY table_name`, like)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("storage: invalid cursor: %w", err)
	}
	offset, err := strconv.Atoi(string(b))
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("storage: invalid cursor")
	}
	return offset, nil
}
