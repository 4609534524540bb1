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

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Timestamp   string              `json:"timestamp"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      discordEmbedFooter  `json:"footer"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordChannel posts an Alert to a Discord incoming webhook as an embed.
type DiscordChannel struct {
	webhookURL string
	httpClient *http.Client
}

// NewDiscordChannel builds a Discord channel. A zero-value webhookURL
// means Discord delivery is not configured for this deployment.
func NewDiscordChannel(webhookURL string) *DiscordChannel {
	return &DiscordChannel{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *DiscordChannel) Name() string { return "discord" }

func (c *DiscordChannel) Send(ctx context.Context, alert *models.Alert) error {
	if c.webhookURL == "" {
		return fmt.Errorf("discord channel not configured")
	}

	payload := discordWebhookPayload{Embeds: []discordEmbed{buildDiscordEmbed(alert)}}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildDiscordEmbed(alert *models.Alert) discordEmbed {
	fields := []discordEmbedField{
		{Name: "Severity", Value: string(alert.Severity), Inline: true},
		{Name: "Rule", Value: alert.RuleName, Inline: true},
		{Name: "Source", Value: alert.SourceEvent.Source, Inline: true},
		{Name: "Event Type", Value: alert.SourceEvent.EventType, Inline: true},
	}

	return discordEmbed{
		Title:       alert.Title,
		Description: alert.Description,
		Color:       severityColor(alert.Severity),
		Timestamp:   alert.Timestamp.Format(time.RFC3339),
		Fields:      fields,
		Footer:      discordEmbedFooter{Text: "WardenLog Detection Engine"},
	}
}

func severityColor(s models.Severity) int {
	switch s {
	case models.SeverityCritical:
		return 0xFF0000 // red
	case models.SeverityHigh:
		return 0xFFA500 // orange
	case models.SeverityMedium:
		return 0xF1C40F // yellow
	case models.SeverityLow:
		return 0x3498DB // blue
	default:
		return 0x95A5A6 // gray
	}
}
