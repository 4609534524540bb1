// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package authz decides whether a caller's bearer-token scopes (internal/auth
// verifies the token itself) permit a specific admin action -- rule-store
// reload, playbook-store reload, audit-trail read -- that a bare scope-string
// comparison isn't expressive enough for once a scope can imply others
// (logs:admin implying rules:write). internal/auth's RequireScopes still
// gates the ingestion endpoints directly; this package gates the
// control-plane endpoints layered on top of it.
package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Enforcer wraps a Casbin RBAC enforcer over the pipeline's scope strings.
// A scope acts as both a role (group membership, via the embedded policy's
// g rules) and a directly-grantable permission (via its own p rules).
type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer loads the embedded RBAC model and policy. The policy is fixed
// at build time -- unlike the teacher's file-watched, auto-reloading
// enforcer, this pipeline has no admin UI for editing permissions, so a
// rebuild is the only way policy changes anyway.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create authz enforcer: %w", err)
	}
	if err := loadPolicy(e, embeddedPolicy); err != nil {
		return nil, fmt.Errorf("load authz policy: %w", err)
	}
	return &Enforcer{e: e}, nil
}

func loadPolicy(e *casbin.Enforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		switch fields[0] {
		case "p":
			if len(fields) < 4 {
				continue
			}
			if _, err := e.AddPolicy(fields[1], fields[2], fields[3]); err != nil {
				return err
			}
		case "g":
			if len(fields) < 3 {
				continue
			}
			if _, err := e.AddGroupingPolicy(fields[1], fields[2]); err != nil {
				return err
			}
		}
	}
	return nil
}

// AllowsAny reports whether any of the caller's scopes permit act on obj.
func (en *Enforcer) AllowsAny(scopes []string, obj, act string) bool {
	for _, scope := range scopes {
		ok, err := en.e.Enforce(scope, obj, act)
		if err == nil && ok {
			return true
		}
	}
	return false
}
