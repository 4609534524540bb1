// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package collector

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardenlog/wardenlog/internal/auth"
	"github.com/wardenlog/wardenlog/internal/middleware"
)

// CORSConfig configures the global CORS handler. Origins defaults to empty,
// matching the teacher's secure-by-default posture: CORS must be
// explicitly configured before any cross-origin caller is allowed.
type CORSConfig struct {
	AllowedOrigins []string
}

// Router builds the Collector's http.Handler: global middleware (request
// ID/logging, real IP extraction, panic recovery, CORS) followed by route
// groups for login, ingestion, and health, each with its own quota.
func (c *Collector) Router(corsCfg CORSConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return middleware.Compression(next.ServeHTTP)
	})
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	r.Route("/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(MetricsMiddleware("/health"))
		r.Get("/", c.handleHealth)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/token", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(MetricsMiddleware("/token"))
		r.Use(c.rateLimit("login", c.cfg.LoginQuota, func(r *http.Request) string {
			return clientIPKey(r, c.cfg.TrustedProxies)
		}))
		r.Post("/", c.handleToken)
	})

	r.Route("/ingest", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(c.requireScope)

		r.With(
			MetricsMiddleware("/ingest"),
			c.rateLimit("request", c.cfg.RequestQuota, clientIPFromClaims),
		).Post("/", c.handleIngest)

		r.With(
			MetricsMiddleware("/ingest/batch"),
			c.rateLimit("batch", c.cfg.BatchQuota, clientIPFromClaims),
		).Post("/batch", c.handleIngestBatch)

		r.With(
			MetricsMiddleware("/ingest/raw"),
			c.rateLimit("request", c.cfg.RequestQuota, clientIPFromClaims),
		).Post("/raw", c.handleIngestRaw)
	})

	r.Route("/ws", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(MetricsMiddleware("/ws"))
		r.Use(c.requireScopes("logs:read"))
		r.Get("/", c.handleWebSocket)
	})

	r.Route("/audit", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(MetricsMiddleware("/audit"))
		r.Use(c.requireScopes("logs:admin"))
		r.With(c.requirePermission("audit", "read")).Get("/", c.handleAuditQuery)
	})

	r.Route("/dlq", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(MetricsMiddleware("/dlq"))
		r.Use(c.requireScopes("logs:admin"))
		r.Get("/", c.handleListDLQ)
	})

	r.Route("/rules", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(MetricsMiddleware("/rules/reload"))
		r.Use(c.requireScopes("rules:write"))
		r.With(c.requirePermission("rules", "reload")).Post("/reload", c.handleReloadRules)
	})

	r.Route("/playbooks", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.With(
			MetricsMiddleware("/playbooks/reload"),
			c.requireScopes("rules:write"),
			c.requirePermission("playbooks", "reload"),
		).Post("/reload", c.handleReloadPlaybooks)

		r.With(
			MetricsMiddleware("/playbooks/runs"),
			c.requireScopes("logs:admin"),
		).Get("/runs", c.handlePlaybookRuns)
	})

	return r
}

// clientIPFromClaims keys per-request quotas by the caller's bound client
// IP. requireScope runs before this middleware on every /ingest route, so
// verified claims are always present in context by the time it executes.
func clientIPFromClaims(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.ClientIP
	}
	return r.RemoteAddr
}
