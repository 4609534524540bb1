// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package collector

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wardenlog/wardenlog/internal/apierr"
	"github.com/wardenlog/wardenlog/internal/audit"
	"github.com/wardenlog/wardenlog/internal/auth"
	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/metrics"
)

// RequestIDWithLogging assigns (or propagates) an X-Request-ID header and
// seeds the request context with request and correlation IDs so every log
// line emitted while handling the request can be tied back to it.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			ctx = logging.ContextWithNewCorrelationID(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APISecurityHeaders sets the response headers every Collector endpoint
// carries regardless of route.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MetricsMiddleware records request counts and latency under a caller-
// supplied route label, since chi's matched-pattern isn't available until
// routing completes and callers of this middleware wrap a specific
// registered handler rather than the whole router.
func MetricsMiddleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// rateLimit builds middleware enforcing quota against the Collector's
// shared RateLimiter, keyed by keyFunc(r). It rejects over-quota requests
// with a 429 carrying X-RateLimit-* headers and a Retry-After, per
// spec.md §6.
func (c *Collector) rateLimit(name string, quota Quota, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := name + ":" + keyFunc(r)
			allowed, remaining, resetAt, err := c.rateLimiter.AllowN(r.Context(), key, 1, quota.Limit, quota.Window)
			if err != nil {
				logging.CtxErr(r.Context(), err).Str("quota", name).Msg("rate limiter unavailable, failing open")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(quota.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				metrics.RateLimitRejections.WithLabelValues(r.URL.Path, name).Inc()
				apierr.RateLimit("rate limit exceeded", secondsUntil(resetAt)).Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// eventRateLimit is like rateLimit but increments by n (the event count of
// the request body) rather than by one per call, backing spec.md §4.1's
// total-event-rate quota which a single large batch can exhaust on its own.
func (c *Collector) checkEventQuota(r *http.Request, n int) (allowed bool, retryAfter int, err error) {
	key := "event:" + clientIPKey(r, c.cfg.TrustedProxies)
	ok, _, resetAt, err := c.rateLimiter.AllowN(r.Context(), key, n, c.cfg.EventQuota.Limit, c.cfg.EventQuota.Window)
	if err != nil {
		return true, 0, err
	}
	if !ok {
		return false, secondsUntil(resetAt), nil
	}
	return true, 0, nil
}

// requireScope enforces the ingestion scope configured for this Collector
// against the caller's bearer token.
func (c *Collector) requireScope(next http.Handler) http.Handler {
	return auth.RequireScopes(c.tokens, c.cfg.TrustedProxies, c.auditDeny, c.cfg.RequiredScope)(next)
}

// auditDeny records a scope-check rejection to the audit trail, if one is
// configured. Passed as auth.RequireScopes' onDeny hook.
func (c *Collector) auditDeny(r *http.Request, subject, reason string) {
	if c.audit == nil {
		return
	}
	actor := audit.ActorFromUser(subject, subject, nil, "bearer")
	c.audit.LogAuthzDenied(r.Context(), actor, audit.SourceFromRequest(r), r.URL.Path, r.Method)
}

func clientIPKey(r *http.Request, trustedProxies map[string]bool) string {
	return auth.ClientIP(r, trustedProxies)
}

func secondsUntil(t time.Time) int {
	d := int(time.Until(t).Seconds())
	if d < 1 {
		return 1
	}
	return d
}
