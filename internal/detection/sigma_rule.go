// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package detection

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/models"
)

// SigmaEvaluator matches events against the Sigma detection dialect's
// selection/condition semantics: named selections under "detection" (each a
// field-map, or a list of field-maps OR-ed together), combined by a boolean
// "condition" expression of selection names joined with and/or/not and
// parentheses. Field names may carry a "|modifier" suffix (contains,
// startswith, endswith, re, base64); bare field names compare for equality
// (wildcards "*"/"?" via a glob-to-regex translation).
//
// Set aggregates ("1 of them", "all of selection*") are not supported; a
// condition using them is treated as a parse error and isolated like any
// other evaluator failure.
type SigmaEvaluator struct{}

// NewSigmaEvaluator returns a stateless SigmaEvaluator.
func NewSigmaEvaluator() *SigmaEvaluator { return &SigmaEvaluator{} }

// Kind identifies the rule kind this evaluator handles.
func (SigmaEvaluator) Kind() models.RuleKind { return models.RuleKindSigma }

// Evaluate matches rule's Sigma selections against event.
func (SigmaEvaluator) Evaluate(_ context.Context, rule *models.Rule, event *models.Event) (*models.Alert, error) {
	var spec models.SigmaRuleSpec
	if err := json.Unmarshal(rule.Spec, &spec); err != nil {
		return nil, fmt.Errorf("decode sigma rule spec: %w", err)
	}

	if !logSourceMatches(spec.LogSource, event) {
		return nil, nil
	}

	flat := flattenScalar(event)
	selections := make(map[string]func() bool, len(spec.Detection))
	for name, raw := range spec.Detection {
		if name == "condition" {
			continue
		}
		sel := raw
		selections[name] = func() bool { return matchSelection(sel, flat) }
	}

	matched, err := evalSigmaCondition(spec.Condition, selections)
	if err != nil {
		return nil, fmt.Errorf("sigma condition %q: %w", rule.ID, err)
	}
	if !matched {
		return nil, nil
	}

	return newAlert(rule, event, flat), nil
}

func logSourceMatches(src models.SigmaLogSource, event *models.Event) bool {
	if src.Category == "" && src.Product == "" && src.Service == "" {
		return true
	}
	if src.Category != "" && src.Category != event.EventType {
		return false
	}
	if src.Product != "" && src.Product != event.Source {
		return false
	}
	return true
}

// flattenScalar reduces an event's data/enriched fields plus its top-level
// identity fields into one flat string-keyed map for selection matching.
func flattenScalar(event *models.Event) map[string]interface{} {
	out := make(map[string]interface{}, len(event.Data)+len(event.Enriched)+2)
	out["source"] = event.Source
	out["event_type"] = event.EventType
	for k, v := range event.Data {
		out[k] = v
	}
	for k, v := range event.Enriched {
		out[k] = v
	}
	return out
}

// matchSelection evaluates one "detection" map entry: a field-map (AND
// across fields) or a list of field-maps (OR across the list).
func matchSelection(raw interface{}, fields map[string]interface{}) bool {
	switch v := raw.(type) {
	case map[string]interface{}:
		return matchFieldMap(v, fields)
	case []interface{}:
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if ok && matchFieldMap(m, fields) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matchFieldMap(selection map[string]interface{}, fields map[string]interface{}) bool {
	for rawField, want := range selection {
		field, modifier := splitModifier(rawField)
		got, ok := fields[field]
		if !ok {
			return false
		}
		if !matchFieldValue(got, want, modifier) {
			return false
		}
	}
	return true
}

func splitModifier(rawField string) (field, modifier string) {
	parts := strings.SplitN(rawField, "|", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

// matchFieldValue matches one field's value against want, which is either a
// scalar or a list of scalars OR-ed together (Sigma's multi-value shorthand).
func matchFieldValue(got, want interface{}, modifier string) bool {
	list, ok := want.([]interface{})
	if !ok {
		return matchScalar(got, want, modifier)
	}
	for _, w := range list {
		if matchScalar(got, w, modifier) {
			return true
		}
	}
	return false
}

func matchScalar(got, want interface{}, modifier string) bool {
	gotStr, ok := got.(string)
	if !ok {
		return false
	}
	wantStr := fmt.Sprintf("%v", want)

	switch modifier {
	case "contains":
		return strings.Contains(gotStr, wantStr)
	case "startswith":
		return strings.HasPrefix(gotStr, wantStr)
	case "endswith":
		return strings.HasSuffix(gotStr, wantStr)
	case "re":
		re, err := compiledPattern(wantStr)
		return err == nil && re.MatchString(gotStr)
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(wantStr)
		return err == nil && gotStr == string(decoded)
	default:
		if strings.ContainsAny(wantStr, "*?") {
			re, err := compiledPattern(globToRegex(wantStr))
			return err == nil && re.MatchString(gotStr)
		}
		return gotStr == wantStr
	}
}

func globToRegex(glob string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '.', '+', '(', ')', '|', '[', ']', '{', '}', '^', '$', '\\':
			b.WriteString("\\")
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("$")
	return b.String()
}

// evalSigmaCondition evaluates a Sigma condition string (selection names
// joined by "and"/"or"/"not" with parentheses) against the given selection
// predicates via a small recursive-descent parser.
func evalSigmaCondition(condition string, selections map[string]func() bool) (bool, error) {
	tokens, err := tokenizeSigmaCondition(condition)
	if err != nil {
		return false, err
	}
	p := &sigmaParser{tokens: tokens, selections: selections}
	result, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.tokens) {
		return false, fmt.Errorf("unexpected token %q", p.tokens[p.pos])
	}
	return result, nil
}

func tokenizeSigmaCondition(condition string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range condition {
		switch {
		case r == '(' || r == ')':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty condition")
	}
	return tokens, nil
}

type sigmaParser struct {
	tokens     []string
	pos        int
	selections map[string]func() bool
}

func (p *sigmaParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *sigmaParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *sigmaParser) parseOr() (bool, error) {
	left, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for strings.EqualFold(p.peek(), "or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		left = left || right
	}
	return left, nil
}

func (p *sigmaParser) parseAnd() (bool, error) {
	left, err := p.parseNot()
	if err != nil {
		return false, err
	}
	for strings.EqualFold(p.peek(), "and") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return false, err
		}
		left = left && right
	}
	return left, nil
}

func (p *sigmaParser) parseNot() (bool, error) {
	if strings.EqualFold(p.peek(), "not") {
		p.next()
		v, err := p.parseNot()
		return !v, err
	}
	return p.parseAtom()
}

func (p *sigmaParser) parseAtom() (bool, error) {
	tok := p.next()
	switch {
	case tok == "(":
		v, err := p.parseOr()
		if err != nil {
			return false, err
		}
		if p.next() != ")" {
			return false, fmt.Errorf("expected closing parenthesis")
		}
		return v, nil
	case tok == "":
		return false, fmt.Errorf("unexpected end of condition")
	default:
		sel, ok := p.selections[tok]
		if !ok {
			return false, fmt.Errorf("unknown selection %q", tok)
		}
		return sel(), nil
	}
}
