// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package detection

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wardenlog/wardenlog/internal/models"
)

// newAlert builds the Alert a matched rule emits for event, per spec.md
// §3's Alert field contract.
func newAlert(rule *models.Rule, event *models.Event, matched map[string]interface{}) *models.Alert {
	return &models.Alert{
		ID:            uuid.NewString(),
		RuleID:        rule.ID,
		RuleName:      rule.Title,
		Severity:      rule.Severity,
		Title:         rule.Title,
		Description:   fmt.Sprintf("rule %q matched event %s", rule.Title, event.ID),
		Timestamp:     time.Now().UTC(),
		SourceEvent:   *event,
		MatchedFields: matched,
		Tags:          rule.Tags,
	}
}
