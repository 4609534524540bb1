// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package detection

import (
	"fmt"
	"strings"
	"time"

	"github.com/wardenlog/wardenlog/internal/cache"
	"github.com/wardenlog/wardenlog/internal/models"
	"github.com/wardenlog/wardenlog/internal/ruleeval"
)

// Throttler suppresses repeat alerts for the same (rule, fingerprint) within
// a rule's throttle window. One shared TTL cache backs every rule; each
// suppression is stored with the matching rule's own window via SetWithTTL,
// since rules configure independent throttle_window values.
type Throttler struct {
	seen          *cache.Cache
	defaultWindow time.Duration
}

// NewThrottler creates a Throttler. defaultWindow applies to rules that do
// not declare their own throttle_window.
func NewThrottler(defaultWindow time.Duration) *Throttler {
	if defaultWindow <= 0 {
		defaultWindow = 5 * time.Minute
	}
	return &Throttler{
		seen:          cache.New(defaultWindow),
		defaultWindow: defaultWindow,
	}
}

// Allow reports whether a match for rule against event should produce an
// alert, or be suppressed as a repeat within the throttle window. A true
// result also records the match so subsequent repeats are suppressed.
func (t *Throttler) Allow(rule *models.Rule, event *models.Event, matched map[string]interface{}) bool {
	window := rule.ThrottleWindow
	if window <= 0 {
		window = t.defaultWindow
	}

	key := rule.ID + "\x00" + t.fingerprint(rule, event, matched)
	if _, ok := t.seen.Get(key); ok {
		return false
	}
	t.seen.SetWithTTL(key, struct{}{}, window)
	return true
}

// fingerprint derives the throttle scope for a match. Rule.FingerprintBy
// names dotted field paths to combine; an empty list falls back to the
// event's source IP-ish match key (source + event_type), the spec's named
// default ("e.g. source IP").
func (t *Throttler) fingerprint(rule *models.Rule, event *models.Event, matched map[string]interface{}) string {
	if len(rule.FingerprintBy) == 0 {
		return event.Source + "\x00" + event.EventType
	}

	fields, err := ruleeval.Fields(event)
	if err != nil {
		return event.Source + "\x00" + event.EventType
	}

	parts := make([]string, 0, len(rule.FingerprintBy))
	for _, path := range rule.FingerprintBy {
		if v, ok := ruleeval.Get(fields, path); ok {
			parts = append(parts, toString(v))
		} else if v, ok := matched[path]; ok {
			parts = append(parts, toString(v))
		} else {
			parts = append(parts, "")
		}
	}
	return strings.Join(parts, "\x00")
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
