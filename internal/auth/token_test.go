// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package auth

import (
	"testing"
	"time"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func TestNewTokenManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenManager("too-short", time.Minute); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestTokenIssueVerifyRoundTrip(t *testing.T) {
	tm, err := NewTokenManager(testSecret, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	token, expiresIn, err := tm.Issue("alice", []string{"logs:write"}, "203.0.113.5")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if expiresIn != 1800 {
		t.Errorf("expiresIn = %d, want 1800", expiresIn)
	}

	claims, err := tm.Verify(token, "203.0.113.5")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want alice", claims.Username)
	}
	if !claims.HasScope("logs:write") {
		t.Error("expected logs:write scope")
	}
}

func TestTokenVerifyRejectsDifferentClientIP(t *testing.T) {
	tm, _ := NewTokenManager(testSecret, 30*time.Minute)
	token, _, _ := tm.Issue("alice", []string{"logs:write"}, "203.0.113.5")

	if _, err := tm.Verify(token, "198.51.100.9"); err == nil {
		t.Fatal("expected error for mismatched client IP")
	}
}

func TestTokenVerifyRejectsTamperedToken(t *testing.T) {
	tm, _ := NewTokenManager(testSecret, 30*time.Minute)
	token, _, _ := tm.Issue("alice", []string{"logs:write"}, "203.0.113.5")

	if _, err := tm.Verify(token+"x", "203.0.113.5"); err == nil {
		t.Fatal("expected error for tampered token")
	}
}

func TestTokenVerifyRejectsExpiredToken(t *testing.T) {
	tm, _ := NewTokenManager(testSecret, -time.Minute)
	token, _, _ := tm.Issue("alice", []string{"logs:write"}, "203.0.113.5")

	if _, err := tm.Verify(token, "203.0.113.5"); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestTokenVerifyRejectsWrongSecret(t *testing.T) {
	tm, _ := NewTokenManager(testSecret, 30*time.Minute)
	token, _, _ := tm.Issue("alice", []string{"logs:write"}, "203.0.113.5")

	other, _ := NewTokenManager("a-totally-different-secret-with-32-plus-chars", 30*time.Minute)
	if _, err := other.Verify(token, "203.0.113.5"); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}
