// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wardenlog/wardenlog/internal/models"
)

// claims is the JWT representation of models.TokenClaims. ClientIP and
// Scopes ride as custom claims alongside the registered set.
type claims struct {
	Scopes   []string `json:"scopes"`
	ClientIP string   `json:"client_ip"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HMAC-signed bearer tokens bound to a
// client IP and a set of granted scopes.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager signing with HS256. secret must be
// at least 32 bytes.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("token secret must be at least 32 characters")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}, nil
}

// Issue mints a token for username, binding it to scopes and clientIP, and
// returns the signed token plus its lifetime in seconds.
func (m *TokenManager) Issue(username string, scopes []string, clientIP string) (token string, expiresIn int, err error) {
	now := time.Now()
	exp := now.Add(m.ttl)

	c := &claims{
		Scopes:   scopes,
		ClientIP: clientIP,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := t.SignedString(m.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}
	return signed, int(m.ttl.Seconds()), nil
}

// Verify parses and validates tokenString, rejecting it unless the
// signature, expiry, and bound client IP all check out against clientIP.
func (m *TokenManager) Verify(tokenString, clientIP string) (*models.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if c.ClientIP != clientIP {
		return nil, fmt.Errorf("token is bound to a different client IP")
	}

	issuedAt := time.Time{}
	if c.IssuedAt != nil {
		issuedAt = c.IssuedAt.Time
	}
	expiresAt := time.Time{}
	if c.ExpiresAt != nil {
		expiresAt = c.ExpiresAt.Time
	}

	return &models.TokenClaims{
		Username:  c.Subject,
		Scopes:    c.Scopes,
		ClientIP:  c.ClientIP,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
