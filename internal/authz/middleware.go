// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package authz

import (
	"net/http"

	"github.com/wardenlog/wardenlog/internal/apierr"
	"github.com/wardenlog/wardenlog/internal/auth"
)

// RequirePermission builds middleware for the control-plane routes layered
// on top of auth.RequireScopes: it reads the claims RequireScopes already
// placed on the request context and asks the Enforcer whether any of the
// caller's scopes permit act on obj. It must run after auth.RequireScopes in
// the chain -- there are no claims on the context otherwise.
func RequirePermission(en *Enforcer, log *AuditLog, obj, act string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				apierr.Auth("missing bearer token").Write(w)
				return
			}
			if !en.AllowsAny(claims.Scopes, obj, act) {
				if log != nil {
					log.Denied(claims.Scopes, obj, act)
				}
				apierr.Scope("scope does not permit this action").Write(w)
				return
			}
			if log != nil {
				log.Allowed(claims.Username, obj, act)
			}
			next.ServeHTTP(w, r)
		})
	}
}
