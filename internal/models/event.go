// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package models defines the wire and storage types shared by every
// component of the ingest-process-detect-respond pipeline.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Event is the unit of ingestion. Collector assigns ID/Timestamp on accept;
// Processor is the only component allowed to write Enriched.
type Event struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source" validate:"required,max=128"`
	EventType string                 `json:"event_type" validate:"required,max=128"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Enriched  map[string]interface{} `json:"enriched,omitempty"`
}

// Clone returns a deep-enough copy safe for concurrent mutation of Data/Enriched.
func (e *Event) Clone() *Event {
	clone := *e
	clone.Data = cloneMap(e.Data)
	clone.Enriched = cloneMap(e.Enriched)
	return &clone
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MarshalBinary satisfies encoding requirements for bus transport (Watermill payloads).
func (e *Event) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalBinary decodes a bus payload back into an Event.
func (e *Event) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// Batch is an ordered sequence of Events carried in one ingest_batch request.
type Batch struct {
	Events []Event `json:"events" validate:"required,min=1,dive"`
}

// RawLogRequest is the body of POST /ingest/raw.
type RawLogRequest struct {
	Source  string `json:"source" validate:"required,max=128"`
	LogLine string `json:"log_line" validate:"required"`
	Format  string `json:"format,omitempty" validate:"omitempty,oneof=apache_combined syslog json auto"`
}

// EventResult is the per-event outcome reported in a batch response.
type EventResult struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchSummary tallies per-event outcomes for a batch ingest.
type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BatchResponse is the body returned by POST /ingest/batch.
type BatchResponse struct {
	Results []EventResult `json:"results"`
	Summary BatchSummary  `json:"summary"`
}
