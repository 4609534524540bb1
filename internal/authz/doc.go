// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package authz gates the control-plane routes (rule reload, playbook
// reload, audit-trail read) with a Casbin RBAC enforcer layered on top of
// internal/auth's bearer-token scopes. A scope is both a grantable
// permission and a role other scopes can inherit through the embedded
// policy's grouping rules, so "logs:admin" implies "rules:write" without
// either endpoint's route wiring needing to know that.
package authz
