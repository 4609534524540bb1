// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

/*
Package middleware provides response-compression middleware shared across
HTTP services in the pipeline.

Request ID propagation, Prometheus instrumentation, and security headers are
collector-specific concerns and live alongside their handlers in
internal/collector/middleware.go; this package holds the one piece of HTTP
plumbing with no natural home in a single service: gzip response
compression for the Collector's ingestion endpoints.

Usage:

	r.Use(func(next http.Handler) http.Handler {
	    return middleware.Compression(next.ServeHTTP)
	})
*/
package middleware
