// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package parser

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// parseJSON decodes a JSON log line. A "timestamp" field is required by
// spec; when absent, the current wall-clock time is synthesized instead of
// rejecting the line, since structured JSON producers commonly omit it in
// favor of ingest-time stamping. "level"/"severity" casing is normalized to
// lowercase.
func parseJSON(source, line string) (*Result, error) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ErrNoMatch{Format: FormatJSON}
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return nil, &ErrNoMatch{Format: FormatJSON}
	}

	ts := extractTimestamp(data)

	for _, key := range []string{"level", "severity"} {
		if v, ok := data[key]; ok {
			if s, ok := v.(string); ok {
				data[key] = strings.ToLower(s)
			}
		}
	}

	return &Result{
		Source:    source,
		EventType: "log",
		Timestamp: ts,
		Data:      data,
	}, nil
}

func extractTimestamp(data map[string]interface{}) time.Time {
	raw, ok := data["timestamp"]
	if !ok {
		return time.Now().UTC()
	}

	s, ok := raw.(string)
	if !ok {
		return time.Now().UTC()
	}

	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}

	return time.Now().UTC()
}
