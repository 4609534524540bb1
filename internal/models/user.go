// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package models

import "time"

// User is a login-capable account. CredentialHash is a bcrypt hash, never
// the plaintext password.
type User struct {
	Username       string   `json:"username"`
	Disabled       bool     `json:"disabled"`
	Scopes         []string `json:"scopes"`
	CredentialHash string   `json:"-"`
}

// TokenClaims binds a bearer token to the issuing request's caller IP, the
// user's granted scopes, and an expiry. Tokens are revocable only by expiry.
type TokenClaims struct {
	Username  string    `json:"sub"`
	Scopes    []string  `json:"scopes"`
	ClientIP  string    `json:"client_ip"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// HasScope reports whether the claims contain the given scope.
func (c TokenClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// HasAllScopes reports whether the claims contain every scope in required.
func (c TokenClaims) HasAllScopes(required []string) bool {
	for _, r := range required {
		if !c.HasScope(r) {
			return false
		}
	}
	return true
}
