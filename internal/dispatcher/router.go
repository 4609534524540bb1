// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package dispatcher

import (
	"context"

	"github.com/wardenlog/wardenlog/internal/config"
	"github.com/wardenlog/wardenlog/internal/models"
)

// Dispatcher routes an Alert to the channels configured for its severity
// and sends to each concurrently; one channel's failure is isolated from
// the rest.
type Dispatcher struct {
	channels map[string]Channel
	routing  map[string][]string
}

// NewDispatcher builds the channel set from cfg and wraps each configured
// channel in retry/breaker handling. Channels with no credentials
// configured are still registered (so a routing-table typo surfaces as a
// "channel not configured" send error rather than a silent no-op), except
// that an empty webhook/bot-token/etc. value still makes Send fail fast.
func NewDispatcher(cfg config.DispatcherConfig) *Dispatcher {
	raw := map[string]Channel{
		"email":    NewEmailChannel(cfg.EmailSMTPHost, cfg.EmailSMTPPort, cfg.EmailFrom, cfg.EmailTo),
		"slack":    NewSlackChannel(cfg.SlackWebhookURL),
		"discord":  NewDiscordChannel(cfg.DiscordWebhookURL),
		"telegram": NewTelegramChannel(cfg.TelegramBotToken, cfg.TelegramChatID),
		"webhook":  NewWebhookChannel(cfg.GenericWebhookURL),
	}

	channels := make(map[string]Channel, len(raw))
	for name, ch := range raw {
		channels[name] = newRetryingChannel(ch, cfg.RetryMaxAttempts)
	}

	routing := cfg.SeverityRouting
	if routing == nil {
		routing = DefaultSeverityRouting()
	}

	return &Dispatcher{
		channels: channels,
		routing:  routing,
	}
}

// DefaultSeverityRouting is used when no severity_routing is configured:
// low-severity alerts are not pushed anywhere noisy, medium reaches chat,
// high and critical reach every channel.
func DefaultSeverityRouting() map[string][]string {
	return map[string][]string{
		"low":      {},
		"medium":   {"slack"},
		"high":     {"slack", "email"},
		"critical": {"slack", "email", "discord", "telegram", "webhook"},
	}
}

// Dispatch sends alert to every channel routed for its severity. Each
// channel's outcome is returned so the caller can log which, if any,
// failed permanently; a returned nil map entry means that channel
// succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert) map[string]error {
	names := d.routing[string(alert.Severity)]
	results := make(map[string]error, len(names))

	for _, name := range names {
		ch, ok := d.channels[name]
		if !ok {
			results[name] = errUnknownChannel(name)
			continue
		}
		results[name] = ch.Send(ctx, alert)
	}
	return results
}

type unknownChannelError string

func (e unknownChannelError) Error() string { return "unknown dispatch channel: " + string(e) }

func errUnknownChannel(name string) error { return unknownChannelError(name) }
