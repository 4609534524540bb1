// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/models"
)

// WebhookPayload is the generic JSON body posted to a configured URL,
// carrying the full alert so an arbitrary downstream consumer can decide
// what to do with it.
type WebhookPayload struct {
	Alert     *models.Alert `json:"alert"`
	EventType string        `json:"event_type"`
	Timestamp time.Time     `json:"timestamp"`
	Source    string        `json:"source"`
}

// WebhookChannel posts an Alert as JSON to a single configured URL.
type WebhookChannel struct {
	url        string
	httpClient *http.Client
}

// NewWebhookChannel builds a generic webhook channel. A zero-value url
// means the channel is not configured for this deployment; Send then
// reports that rather than attempting a request.
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Send(ctx context.Context, alert *models.Alert) error {
	if c.url == "" {
		return fmt.Errorf("webhook channel not configured")
	}

	payload := WebhookPayload{
		Alert:     alert,
		EventType: "alert.triggered",
		Timestamp: alert.Timestamp,
		Source:    "wardenlog",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
