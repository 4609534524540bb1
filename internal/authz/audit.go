// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package authz

import "github.com/wardenlog/wardenlog/internal/logging"

// AuditLog records allow/deny decisions made by Enforcer.AllowsAny. It is a
// thin zerolog wrapper, not a persisted trail -- internal/audit already
// records the admin actions these decisions gate once they succeed; this
// log exists for tracing the authorization decision itself, including the
// denials internal/audit never sees a request for.
type AuditLog struct {
	security *logging.SecurityLogger
}

// NewAuditLog builds an authz decision logger.
func NewAuditLog() *AuditLog {
	return &AuditLog{security: logging.NewSecurityLogger()}
}

// Allowed logs a granted authorization decision.
func (a *AuditLog) Allowed(subject, obj, act string) {
	a.security.Info("authz_allowed", "subject", subject, "object", obj, "action", act)
}

// Denied logs a refused authorization decision.
func (a *AuditLog) Denied(subjects []string, obj, act string) {
	a.security.Warn("authz_denied", "subjects", subjects, "object", obj, "action", act)
}
