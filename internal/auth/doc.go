// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package auth issues and verifies the bearer tokens that protect the
// ingestion API, and tracks failed logins for account lockout.
//
// A caller exchanges a username and password for a bearer token at /token
// (TokenManager.Issue). The token is bound to the scopes granted to the
// user and the client IP that requested it; TokenManager.Verify rejects a
// token presented from any other IP. Five failed login attempts for a
// username within a fifteen-minute window lock that username out for the
// remainder of the window (LockoutManager).
package auth
