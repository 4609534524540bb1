// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package detection

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/models"
	"github.com/wardenlog/wardenlog/internal/ruleeval"
)

// CustomEvaluator walks a rule's dotted-path condition tree against an
// event. Field paths traverse into "data", "enriched", or the event's
// top-level fields; a type mismatch between an operator and the field's
// actual value is a non-match, never an error.
type CustomEvaluator struct{}

// NewCustomEvaluator returns a stateless CustomEvaluator.
func NewCustomEvaluator() *CustomEvaluator { return &CustomEvaluator{} }

// Kind identifies the rule kind this evaluator handles.
func (CustomEvaluator) Kind() models.RuleKind { return models.RuleKindCustom }

// Evaluate matches rule's condition tree against event.
func (CustomEvaluator) Evaluate(_ context.Context, rule *models.Rule, event *models.Event) (*models.Alert, error) {
	var spec models.CustomRuleSpec
	if err := json.Unmarshal(rule.Spec, &spec); err != nil {
		return nil, fmt.Errorf("decode custom rule spec: %w", err)
	}

	fields, err := ruleeval.Fields(event)
	if err != nil {
		return nil, fmt.Errorf("flatten event: %w", err)
	}

	if !ruleeval.EvalExpr(spec.Root, fields) {
		return nil, nil
	}

	return newAlert(rule, event, matchedLeafFields(spec.Root, fields)), nil
}

// matchedLeafFields collects the field values named by every leaf condition
// in expr, for the alert's matched_fields payload.
func matchedLeafFields(expr models.CustomExpr, fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	collectLeafFields(expr, fields, out)
	return out
}

func collectLeafFields(expr models.CustomExpr, fields map[string]interface{}, out map[string]interface{}) {
	if expr.Condition != nil {
		if v, ok := ruleeval.Get(fields, expr.Condition.Field); ok {
			out[expr.Condition.Field] = v
		}
		return
	}
	for _, child := range expr.Children {
		collectLeafFields(child, fields, out)
	}
}
