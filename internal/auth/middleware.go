// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/wardenlog/wardenlog/internal/apierr"
	"github.com/wardenlog/wardenlog/internal/models"
)

type contextKey string

const claimsContextKey contextKey = "token_claims"

// ContextWithClaims returns a context carrying the verified token claims.
func ContextWithClaims(ctx context.Context, c *models.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, c)
}

// ClaimsFromContext retrieves the claims stored by RequireScopes, if any.
func ClaimsFromContext(ctx context.Context) (*models.TokenClaims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*models.TokenClaims)
	return c, ok
}

// DenyHook is called whenever RequireScopes rejects a request, so callers
// can route the decision to an audit trail without RequireScopes itself
// depending on internal/audit. subject is the caller's username when a
// token was at least parseable, empty otherwise.
type DenyHook func(r *http.Request, subject, reason string)

// RequireScopes builds middleware that extracts a bearer token, verifies it
// against the caller's client IP, and rejects the request unless the
// token's claims carry every scope in required. onDeny may be nil.
func RequireScopes(tm *TokenManager, trustedProxies map[string]bool, onDeny DenyHook, required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				apierr.Auth("missing bearer token").Write(w)
				if onDeny != nil {
					onDeny(r, "", "missing bearer token")
				}
				return
			}

			ip := ClientIP(r, trustedProxies)
			claims, err := tm.Verify(token, ip)
			if err != nil {
				apierr.Auth("invalid or expired token").Write(w)
				if onDeny != nil {
					onDeny(r, "", "invalid or expired token")
				}
				return
			}
			if !claims.HasAllScopes(required) {
				apierr.Scope("token is missing a required scope").Write(w)
				if onDeny != nil {
					onDeny(r, claims.Username, "missing required scope")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// ClientIP extracts the caller's address, trusting X-Forwarded-For/
// X-Real-IP only when the immediate peer is in trustedProxies.
func ClientIP(r *http.Request, trustedProxies map[string]bool) string {
	remoteIP := r.RemoteAddr
	if idx := strings.LastIndex(remoteIP, ":"); idx != -1 && !strings.Contains(remoteIP, "]") {
		remoteIP = remoteIP[:idx]
	}

	if len(trustedProxies) == 0 || !trustedProxies[remoteIP] {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return remoteIP
}
