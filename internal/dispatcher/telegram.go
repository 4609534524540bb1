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
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/models"
)

// TelegramChannel posts an Alert to a chat via the Telegram Bot API's
// sendMessage method.
type TelegramChannel struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	apiBase    string // overridable in tests
}

// NewTelegramChannel builds a Telegram channel. A zero-value botToken or
// chatID means Telegram delivery is not configured for this deployment.
func NewTelegramChannel(botToken, chatID string) *TelegramChannel {
	return &TelegramChannel{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBase:    "https://api.telegram.org",
	}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Send(ctx context.Context, alert *models.Alert) error {
	if c.botToken == "" || c.chatID == "" {
		return fmt.Errorf("telegram channel not configured")
	}

	text := fmt.Sprintf("*[%s]* %s\n%s\nrule: %s  source: %s",
		alert.Severity, alert.Title, alert.Description, alert.RuleName, alert.SourceEvent.Source)

	reqBody := map[string]string{
		"chat_id":    c.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, url.PathEscape(c.botToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}
