// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package detection

import (
	"context"
	"sync"
	"time"

	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/metrics"
	"github.com/wardenlog/wardenlog/internal/models"
)

// Engine coordinates rule selection, evaluator dispatch, throttling, and
// per-evaluator error isolation for one processed event.
type Engine struct {
	store      RuleStore
	throttle   *Throttler
	evaluators map[models.RuleKind]Evaluator

	mu      sync.RWMutex
	enabled bool
}

// NewEngine creates an Engine over store, suppressing repeat alerts per
// defaultThrottle unless a rule names its own throttle_window.
func NewEngine(store RuleStore, defaultThrottle time.Duration) *Engine {
	return &Engine{
		store:      store,
		throttle:   NewThrottler(defaultThrottle),
		evaluators: make(map[models.RuleKind]Evaluator),
		enabled:    true,
	}
}

// RegisterEvaluator wires one rule kind's evaluator into the engine.
func (e *Engine) RegisterEvaluator(ev Evaluator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluators[ev.Kind()] = ev
	logging.Info().Str("kind", string(ev.Kind())).Msg("registered detection evaluator")
}

// SetEnabled enables or disables evaluation; Process returns no alerts while
// disabled.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
}

// Process runs every candidate rule against event and returns the alerts
// that matched and were not throttled. An evaluator error is isolated: it
// is logged and counted, and evaluation continues with the remaining rules.
func (e *Engine) Process(ctx context.Context, event *models.Event) []*models.Alert {
	e.mu.RLock()
	enabled := e.enabled
	e.mu.RUnlock()
	if !enabled {
		return nil
	}

	metrics.DetectionEventsProcessed.Inc()

	var alerts []*models.Alert
	for _, rule := range e.candidateRules(event) {
		rule := rule
		alert, err := e.evaluate(ctx, &rule, event)
		if err != nil {
			logging.CtxError(ctx).
				Str("rule_id", rule.ID).
				Str("rule_type", string(rule.Kind)).
				Err(err).
				Msg("detection evaluator error")
			metrics.DetectionEvaluatorErrors.WithLabelValues(string(rule.Kind)).Inc()
			continue
		}
		if alert == nil {
			continue
		}
		if !e.throttle.Allow(&rule, event, alert.MatchedFields) {
			metrics.DetectionAlertsThrottled.Inc()
			continue
		}
		metrics.DetectionAlertsEmitted.WithLabelValues(string(rule.Kind), string(rule.Severity)).Inc()
		alerts = append(alerts, alert)
	}
	return alerts
}

func (e *Engine) evaluate(ctx context.Context, rule *models.Rule, event *models.Event) (*models.Alert, error) {
	e.mu.RLock()
	ev, ok := e.evaluators[rule.Kind]
	e.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return ev.Evaluate(ctx, rule, event)
}

// candidateRules prunes the rule store's current set down to enabled rules
// whose event_types/sources filters (if any) admit event, per spec.md
// §4.7's "indexed by event_type and source where possible to prune
// evaluation."
func (e *Engine) candidateRules(event *models.Event) []models.Rule {
	all := e.store.Rules()
	candidates := make([]models.Rule, 0, len(all))
	for _, rule := range all {
		if !rule.Enabled {
			continue
		}
		if len(rule.EventTypes) > 0 && !contains(rule.EventTypes, event.EventType) {
			continue
		}
		if len(rule.Sources) > 0 && !contains(rule.Sources, event.Source) {
			continue
		}
		candidates = append(candidates, rule)
	}
	return candidates
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
