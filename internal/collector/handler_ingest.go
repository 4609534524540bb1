// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package collector

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/wardenlog/wardenlog/internal/apierr"
	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/models"
	"github.com/wardenlog/wardenlog/internal/parser"
	"github.com/wardenlog/wardenlog/internal/validation"
)

const maxIngestBodyBytes = 8 * 1024 * 1024

// acceptedResponse is the body of a successful single-event ingest.
type acceptedResponse struct {
	Status string `json:"status"`
}

// handleIngest accepts one Event and publishes it to the raw-events topic,
// keyed by source to preserve per-source ordering (spec.md §4.2).
func (c *Collector) handleIngest(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if !c.decodeJSON(w, r, &event) {
		return
	}
	if verr := validation.ValidateStruct(&event); verr != nil {
		writeValidationError(w, verr)
		return
	}

	if allowed, retryAfter, err := c.checkEventQuota(r, 1); err == nil && !allowed {
		apierr.RateLimit("event rate limit exceeded", retryAfter).Write(w)
		return
	}

	fillEvent(&event)

	if err := c.publish(r.Context(), &event); err != nil {
		logging.CtxErr(r.Context(), err).Str("source", event.Source).Msg("ingest publish failed")
		apierr.Upstream("failed to publish event").Write(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(acceptedResponse{Status: "success"})
}

// handleIngestBatch accepts a bounded list of events with per-event
// independence: each event is attempted individually and the response
// reports per-event outcomes with an overall 200 even on partial failure.
// A hard failure (batch too large) rejects the whole request instead.
func (c *Collector) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var batch models.Batch
	if !c.decodeJSON(w, r, &batch) {
		return
	}
	if len(batch.Events) == 0 {
		apierr.Validation("events must not be empty").Write(w)
		return
	}
	maxEvents := c.cfg.MaxBatchEvents
	if maxEvents <= 0 {
		maxEvents = 500
	}
	if len(batch.Events) > maxEvents {
		apierr.Validation("batch exceeds the maximum events per request").Write(w)
		return
	}

	if allowed, retryAfter, err := c.checkEventQuota(r, len(batch.Events)); err == nil && !allowed {
		apierr.RateLimit("event rate limit exceeded", retryAfter).Write(w)
		return
	}

	results := make([]models.EventResult, len(batch.Events))
	summary := models.BatchSummary{Total: len(batch.Events)}

	for i := range batch.Events {
		event := &batch.Events[i]
		if verr := validation.ValidateStruct(event); verr != nil {
			apiErr := verr.ToAPIError()
			results[i] = models.EventResult{Status: "failed", Error: apiErr.Message}
			summary.Failed++
			continue
		}

		fillEvent(event)

		if err := c.publish(r.Context(), event); err != nil {
			logging.CtxErr(r.Context(), err).Str("source", event.Source).Msg("batch event publish failed")
			results[i] = models.EventResult{Status: "failed", ID: event.ID, Error: "publish failed"}
			summary.Failed++
			continue
		}

		results[i] = models.EventResult{Status: "success", ID: event.ID}
		summary.Successful++
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(models.BatchResponse{Results: results, Summary: summary})
}

// handleIngestRaw parses a raw log line into an Event using the configured
// (or auto-detected) format before publishing it.
func (c *Collector) handleIngestRaw(w http.ResponseWriter, r *http.Request) {
	var req models.RawLogRequest
	if !c.decodeJSON(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, verr)
		return
	}

	if allowed, retryAfter, err := c.checkEventQuota(r, 1); err == nil && !allowed {
		apierr.RateLimit("event rate limit exceeded", retryAfter).Write(w)
		return
	}

	result, err := parser.Parse(req.Source, req.Format, req.LogLine)
	if err != nil {
		apierr.Validation("log line could not be parsed: " + err.Error()).Write(w)
		return
	}

	event := models.Event{
		Source:    result.Source,
		EventType: result.EventType,
		Timestamp: result.Timestamp,
		Data:      result.Data,
	}
	fillEvent(&event)

	if err := c.publish(r.Context(), &event); err != nil {
		logging.CtxErr(r.Context(), err).Str("source", event.Source).Msg("raw ingest publish failed")
		apierr.Upstream("failed to publish event").Write(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(acceptedResponse{Status: "success"})
}

// fillEvent assigns an ID and, if missing, a wall-clock UTC timestamp to an
// event accepted by the Collector (spec.md §4.2).
func fillEvent(e *models.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

// publish marshals event and publishes it to the raw-events topic keyed by
// source, blocking up to the configured ack window.
func (c *Collector) publish(ctx context.Context, event *models.Event) error {
	payload, err := event.MarshalBinary()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PublishTimeout)
	defer cancel()
	return c.publisher.PublishSync(ctx, c.cfg.RawLogsTopic, event.Source, payload)
}

// decodeJSON decodes r's body into dst, writing a 400 and returning false
// on any decode failure or oversized body.
func (c *Collector) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err == io.EOF {
			apierr.BadRequest("request body is empty").Write(w)
		} else {
			apierr.BadRequest("malformed JSON body").Write(w)
		}
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	e := apierr.Validation(apiErr.Message)
	e.Details = apiErr.Details
	e.Write(w)
}
