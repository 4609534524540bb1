// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package response

import (
	"context"

	"github.com/wardenlog/wardenlog/internal/config"
	"github.com/wardenlog/wardenlog/internal/models"
)

// Driver executes one playbook action against its external collaborator
// (TheHive, Cortex, Ansible, a python shim, or a generic webhook). Execute
// must itself respect ctx's deadline; the Runner also enforces the action's
// own timeout around the call.
type Driver interface {
	Type() models.ActionType
	Execute(ctx context.Context, params map[string]string) (Result, error)
}

// Result is a driver call's serializable outcome, recorded for operator
// visibility but not otherwise interpreted by the Runner.
type Result struct {
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
}

// DefaultDrivers builds one Driver per models.ActionType from cfg, ready to
// register on a Runner with RegisterDriver. A driver whose URL is empty in
// cfg still registers (so an unconfigured playbook action fails with a
// clear "not configured" error instead of "unknown action type"), except
// for the python driver, which reports not_configured as a successful no-op.
func DefaultDrivers(cfg config.ResponseConfig) []Driver {
	return []Driver{
		newHTTPDriver(models.ActionTypeTheHive, cfg.TheHiveURL, cfg.TheHiveAPIKey),
		newHTTPDriver(models.ActionTypeCortex, cfg.CortexURL, cfg.CortexAPIKey),
		newHTTPDriver(models.ActionTypeAnsible, cfg.AnsibleAPIURL, ""),
		newHTTPDriver(models.ActionTypeWebhook, "", ""),
		newPythonDriver(cfg.PythonActionURL),
	}
}
