// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package ruleeval evaluates the dotted-path condition tree shared by custom
// detection rules (internal/detection) and playbook triggers/conditions
// (internal/response), so both packages walk the same operator semantics
// against whatever struct they are matching (an Event or an Alert).
package ruleeval

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/models"
)

// Fields flattens v (an *Event, *Alert, or similar) into a nested
// map[string]interface{} via its JSON encoding, so dotted field paths like
// "data.src_ip" or "matched_fields.source_ip" resolve the same way they were
// declared in a rule or playbook trigger.
func Fields(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Get resolves a dotted path against a flattened field map. ok is false if
// any segment of the path is absent or traverses through a non-object value.
func Get(fields map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = fields
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// EvalCondition evaluates a single leaf condition. A type mismatch (e.g. a
// numeric operator against a string field) or an absent field is treated as
// a non-match, never an error, per the custom evaluator's contract -- except
// "ne" and "not_in", where an absent field is vacuously true (it is, after
// all, not equal to / not a member of anything).
func EvalCondition(cond models.CustomCondition, fields map[string]interface{}) bool {
	val, ok := Get(fields, cond.Field)
	if !ok {
		return cond.Op == models.OpNe || cond.Op == models.OpNotIn
	}

	switch cond.Op {
	case models.OpEq:
		return equal(val, cond.Value)
	case models.OpNe:
		return !equal(val, cond.Value)
	case models.OpGt, models.OpGte, models.OpLt, models.OpLte:
		return compareNumeric(cond.Op, val, cond.Value)
	case models.OpIn:
		return membership(val, cond.Value)
	case models.OpNotIn:
		return !membership(val, cond.Value)
	case models.OpContains:
		return contains(val, cond.Value)
	case models.OpRegex:
		return regexMatch(val, cond.Value)
	default:
		return false
	}
}

// EvalExpr evaluates a condition tree node, recursing through Join/Children.
func EvalExpr(expr models.CustomExpr, fields map[string]interface{}) bool {
	if expr.Condition != nil {
		return EvalCondition(*expr.Condition, fields)
	}
	if len(expr.Children) == 0 {
		return false
	}
	if expr.Join == models.JoinOr {
		for _, child := range expr.Children {
			if EvalExpr(child, fields) {
				return true
			}
		}
		return false
	}
	for _, child := range expr.Children {
		if !EvalExpr(child, fields) {
			return false
		}
	}
	return true
}

// EvalAll reports whether every condition matches fields, AND-joined -- the
// shape playbook triggers and action conditions both use.
func EvalAll(conds []models.CustomCondition, fields map[string]interface{}) bool {
	for _, c := range conds {
		if !EvalCondition(c, fields) {
			return false
		}
	}
	return true
}

func equal(a, b interface{}) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return asString(a) == asString(b)
}

func compareNumeric(op models.Operator, a, b interface{}) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return false
	}
	switch op {
	case models.OpGt:
		return af > bf
	case models.OpGte:
		return af >= bf
	case models.OpLt:
		return af < bf
	case models.OpLte:
		return af <= bf
	default:
		return false
	}
}

func membership(val, set interface{}) bool {
	list, ok := set.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		if equal(val, item) {
			return true
		}
	}
	return false
}

func contains(val, needle interface{}) bool {
	switch v := val.(type) {
	case string:
		n, ok := needle.(string)
		return ok && strings.Contains(v, n)
	case []interface{}:
		for _, item := range v {
			if equal(item, needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func regexMatch(val, pattern interface{}) bool {
	s, ok := val.(string)
	if !ok {
		return false
	}
	p, ok := pattern.(string)
	if !ok {
		return false
	}
	re, err := compiledRegex(p)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
