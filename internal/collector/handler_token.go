// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package collector

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/apierr"
	"github.com/wardenlog/wardenlog/internal/audit"
	"github.com/wardenlog/wardenlog/internal/auth"
)

// tokenResponse is the body of a successful POST /token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleToken issues a bearer token for a valid (username, password) pair.
// The request is form-encoded, not JSON, per spec.md §6.
func (c *Collector) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := auth.ClientIP(r, c.cfg.TrustedProxies)

	if err := r.ParseForm(); err != nil {
		apierr.BadRequest("malformed form body").Write(w)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		apierr.Validation("username and password are required").Write(w)
		return
	}

	locked, retryAfter, err := c.lockouts.CheckLocked(ctx, username)
	if err != nil {
		apierr.Internal("lockout check failed", "").Write(w)
		return
	}
	if locked {
		if c.audit != nil {
			c.audit.LogAuthLockout(ctx, username, audit.SourceFromRequest(r), c.cfg.LoginQuota.Window, 0)
		}
		apierr.RateLimit("account temporarily locked due to repeated failed logins", int(retryAfter.Seconds())+1).Write(w)
		return
	}

	user, lookupErr := c.users.GetUser(ctx, username)
	if lookupErr != nil && lookupErr != auth.ErrUserNotFound {
		apierr.Internal("user lookup failed", "").Write(w)
		return
	}

	if !auth.VerifyCredentials(user, password) {
		nowLocked, lockRetryAfter, recErr := c.lockouts.RecordFailure(ctx, username)
		if recErr == nil && nowLocked {
			c.security.LogLoginFailure(username, "local", ip, r.UserAgent(), "locked out after repeated failures")
			if c.audit != nil {
				c.audit.LogAuthLockout(ctx, username, audit.SourceFromRequest(r), c.cfg.LoginQuota.Window, 0)
			}
			apierr.RateLimit("account locked due to repeated failed logins", int(lockRetryAfter.Seconds())+1).Write(w)
			return
		}
		c.security.LogLoginFailure(username, "local", ip, r.UserAgent(), "invalid credentials")
		if c.audit != nil {
			c.audit.LogAuthFailure(ctx, username, audit.SourceFromRequest(r), "invalid credentials")
		}
		apierr.Auth("invalid username or password").Write(w)
		return
	}

	c.lockouts.Clear(ctx, username)

	token, expiresIn, issueErr := c.tokens.Issue(username, user.Scopes, ip)
	if issueErr != nil {
		apierr.Internal("token issuance failed", "").Write(w)
		return
	}

	c.security.LogLoginSuccess(username, username, "local", ip, r.UserAgent())
	if c.audit != nil {
		c.audit.LogAuthSuccess(ctx, audit.ActorFromUser(username, username, user.Scopes, "local"), audit.SourceFromRequest(r))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
	})
}
