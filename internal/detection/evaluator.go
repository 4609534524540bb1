// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package detection

import (
	"context"

	"github.com/wardenlog/wardenlog/internal/models"
)

// Evaluator runs one rule kind's matching logic against an event. A nil
// Alert with a nil error means the rule did not match this event.
type Evaluator interface {
	Kind() models.RuleKind
	Evaluate(ctx context.Context, rule *models.Rule, event *models.Event) (*models.Alert, error)
}

// RuleStore exposes the current, hot-reloaded rule set. Implementations own
// how rules are loaded and when Rules() is refreshed.
type RuleStore interface {
	Rules() []models.Rule
	Reload() error
}
