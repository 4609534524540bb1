// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package apierr defines the HTTP-facing error taxonomy (spec §7) shared by
// every component that writes a JSON error body.
package apierr

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
)

// Code is a stable, machine-readable error identifier returned in the body.
type Code string

const (
	CodeValidation = Code("validation_error")
	CodeAuth       = Code("auth_error")
	CodeScope      = Code("scope_error")
	CodeRateLimit  = Code("rate_limit_error")
	CodeUpstream   = Code("upstream_unavailable")
	CodeInternal   = Code("internal_error")
)

// Error is the typed error every handler returns; Status drives the HTTP
// response code and Code is the stable identifier in the JSON body.
type Error struct {
	Status  int
	Code    Code
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string { return e.Message }

func new(status int, code Code, msg string) *Error {
	return &Error{Status: status, Code: code, Message: msg}
}

// Validation constructs a 422 ValidationError (400 is also used by callers
// that want "malformed body" rather than "failed parse").
func Validation(msg string) *Error { return new(http.StatusUnprocessableEntity, CodeValidation, msg) }

// BadRequest constructs a 400 ValidationError for malformed request bodies.
func BadRequest(msg string) *Error { return new(http.StatusBadRequest, CodeValidation, msg) }

// Auth constructs a 401 AuthError.
func Auth(msg string) *Error { return new(http.StatusUnauthorized, CodeAuth, msg) }

// Scope constructs a 403 ScopeError.
func Scope(msg string) *Error { return new(http.StatusForbidden, CodeScope, msg) }

// RateLimit constructs a 429 RateLimitError. retryAfterSeconds becomes the
// Retry-After header when written.
func RateLimit(msg string, retryAfterSeconds int) *Error {
	e := new(http.StatusTooManyRequests, CodeRateLimit, msg)
	e.Details = map[string]interface{}{"retry_after": retryAfterSeconds}
	return e
}

// Upstream constructs a 503 UpstreamUnavailable.
func Upstream(msg string) *Error { return new(http.StatusServiceUnavailable, CodeUpstream, msg) }

// Internal constructs a 500 Internal error. correlationID is attached to the
// body so a client can cite it in a support request.
func Internal(msg, correlationID string) *Error {
	e := new(http.StatusInternalServerError, CodeInternal, msg)
	if correlationID != "" {
		e.Details = map[string]interface{}{"correlation_id": correlationID}
	}
	return e
}

type body struct {
	Status  string                 `json:"status"`
	Error   Code                   `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Write renders the error as the structured JSON body spec §7 requires.
func (e *Error) Write(w http.ResponseWriter) {
	if e.Code == CodeRateLimit {
		if ra, ok := e.Details["retry_after"]; ok {
			w.Header().Set("Retry-After", toSeconds(ra))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(body{
		Status:  "error",
		Error:   e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

func toSeconds(v interface{}) string {
	if n, ok := v.(int); ok {
		return strconv.Itoa(n)
	}
	return "1"
}
