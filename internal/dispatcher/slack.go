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

type slackWebhookPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields,omitempty"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// SlackChannel posts an Alert to a Slack incoming webhook as an attachment.
type SlackChannel struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackChannel builds a Slack channel. A zero-value webhookURL means
// Slack delivery is not configured for this deployment.
func NewSlackChannel(webhookURL string) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Send(ctx context.Context, alert *models.Alert) error {
	if c.webhookURL == "" {
		return fmt.Errorf("slack channel not configured")
	}

	payload := slackWebhookPayload{
		Text: fmt.Sprintf("[%s] %s", alert.Severity, alert.Title),
		Attachments: []slackAttachment{{
			Color: slackColor(alert.Severity),
			Title: alert.RuleName,
			Text:  alert.Description,
			Fields: []slackField{
				{Title: "Severity", Value: string(alert.Severity), Short: true},
				{Title: "Source", Value: alert.SourceEvent.Source, Short: true},
				{Title: "Event Type", Value: alert.SourceEvent.EventType, Short: true},
			},
			Ts: alert.Timestamp.Unix(),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func slackColor(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return "danger"
	case models.SeverityHigh:
		return "warning"
	default:
		return "#3498DB"
	}
}
