// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package response

import (
	"context"

	"github.com/wardenlog/wardenlog/internal/models"
)

// pythonDriver never loads or shells out to Python code. With no endpoint
// configured it is a named, registered no-op that reports not_configured;
// an operator who wants a real python-type action points it at an HTTP
// shim and gets the same request/response contract as every other driver.
type pythonDriver struct {
	delegate     *httpDriver
	isConfigured bool
}

func newPythonDriver(endpoint string) *pythonDriver {
	return &pythonDriver{
		delegate:     newHTTPDriver(models.ActionTypePython, endpoint, ""),
		isConfigured: endpoint != "",
	}
}

func (d *pythonDriver) Type() models.ActionType { return models.ActionTypePython }

func (d *pythonDriver) Execute(ctx context.Context, params map[string]string) (Result, error) {
	if !d.isConfigured {
		return Result{Body: "not_configured"}, nil
	}
	return d.delegate.Execute(ctx, params)
}
