// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package response

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/wardenlog/wardenlog/internal/models"
)

// httpDriver posts an action's rendered parameters as a JSON body to a
// configured URL and is the basis for the thehive/cortex/ansible/webhook
// driver types; a zero-value URL means the action's collaborator was never
// configured for this deployment.
type httpDriver struct {
	kind       models.ActionType
	url        string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[Result]
}

func newHTTPDriver(kind models.ActionType, url, apiKey string) *httpDriver {
	return &httpDriver{
		kind:       kind,
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    newDriverBreaker(string(kind)),
	}
}

func (d *httpDriver) Type() models.ActionType { return d.kind }

func (d *httpDriver) Execute(ctx context.Context, params map[string]string) (Result, error) {
	if d.url == "" {
		return Result{}, fmt.Errorf("%s driver not configured", d.kind)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return Result{}, fmt.Errorf("marshal parameters: %w", err)
	}

	return d.breaker.Execute(func() (Result, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
		if err != nil {
			return Result{}, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if d.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+d.apiKey)
		}

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return Result{}, fmt.Errorf("%s request: %w", d.kind, err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		result := Result{StatusCode: resp.StatusCode, Body: string(respBody)}
		if resp.StatusCode >= 400 {
			return result, fmt.Errorf("%s returned status %d", d.kind, resp.StatusCode)
		}
		return result, nil
	})
}
