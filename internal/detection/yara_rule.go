// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package detection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/cache"
	"github.com/wardenlog/wardenlog/internal/models"
	"github.com/wardenlog/wardenlog/internal/ruleeval"
)

// YaraEvaluator matches an event's file-content field against a compiled
// string-matching ruleset. Only plain-text string literals and a boolean
// condition over them are supported -- hex strings, regex strings, modules,
// and YARA's private/global rule modifiers are out of scope; a rule using
// them fails to parse and is isolated like any other evaluator error.
//
// Matching itself runs on internal/cache's Aho-Corasick automaton, so every
// rule's string set is searched in one linear pass over the content instead
// of one substring scan per string.
type YaraEvaluator struct {
	mu       sync.Mutex
	compiled map[string]*compiledYaraRule
}

// NewYaraEvaluator returns a YaraEvaluator with an empty compile cache.
func NewYaraEvaluator() *YaraEvaluator {
	return &YaraEvaluator{compiled: make(map[string]*compiledYaraRule)}
}

// Kind identifies the rule kind this evaluator handles.
func (*YaraEvaluator) Kind() models.RuleKind { return models.RuleKindYARA }

// Evaluate matches rule's compiled strings against event's content field.
func (e *YaraEvaluator) Evaluate(_ context.Context, rule *models.Rule, event *models.Event) (*models.Alert, error) {
	var spec models.YARARuleSpec
	if err := json.Unmarshal(rule.Spec, &spec); err != nil {
		return nil, fmt.Errorf("decode yara rule spec: %w", err)
	}

	fields, err := ruleeval.Fields(event)
	if err != nil {
		return nil, fmt.Errorf("flatten event: %w", err)
	}
	content, ok := ruleeval.Get(fields, spec.ContentField)
	if !ok {
		return nil, nil
	}
	text, ok := content.(string)
	if !ok || text == "" {
		return nil, nil
	}

	compiled, err := e.getCompiled(rule.ID, spec.Source)
	if err != nil {
		return nil, fmt.Errorf("compile yara rule %q: %w", rule.ID, err)
	}

	matchedIDs := make(map[string]bool, len(compiled.stringIDs))
	for _, m := range compiled.ac.Search(text) {
		if id, ok := m.Data.(string); ok {
			matchedIDs[id] = true
		}
	}

	matched, err := evalYaraCondition(compiled.condition, compiled.stringIDs, matchedIDs)
	if err != nil {
		return nil, fmt.Errorf("yara condition %q: %w", rule.ID, err)
	}
	if !matched {
		return nil, nil
	}

	matchedFields := map[string]interface{}{spec.ContentField: text}
	for id := range matchedIDs {
		matchedFields[id] = true
	}
	return newAlert(rule, event, matchedFields), nil
}

type compiledYaraRule struct {
	ac         *cache.AhoCorasick
	stringIDs  []string
	condition  string
	sourceHash string
}

// getCompiled returns the cached compiled rule for ruleID, recompiling when
// source has changed since the last compile (a rule-store reload may have
// replaced the rule's text under the same ID).
func (e *YaraEvaluator) getCompiled(ruleID, source string) (*compiledYaraRule, error) {
	hash := sha256.Sum256([]byte(source))
	sourceHash := hex.EncodeToString(hash[:])

	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.compiled[ruleID]; ok && c.sourceHash == sourceHash {
		return c, nil
	}

	c, err := compileYaraSource(source)
	if err != nil {
		return nil, err
	}
	c.sourceHash = sourceHash
	e.compiled[ruleID] = c
	return c, nil
}

var (
	yaraStringPattern   = regexp.MustCompile(`(?m)^\s*(\$[A-Za-z0-9_]+)\s*=\s*"((?:[^"\\]|\\.)*)"`)
	yaraStringsHeader   = regexp.MustCompile(`(?m)strings\s*:`)
	yaraConditionHeader = regexp.MustCompile(`(?m)condition\s*:`)
)

// compileYaraSource extracts the "strings:" literals and "condition:" body
// of a single-rule YARA source text and builds its Aho-Corasick automaton.
func compileYaraSource(source string) (*compiledYaraRule, error) {
	stringsLoc := yaraStringsHeader.FindStringIndex(source)
	conditionLoc := yaraConditionHeader.FindStringIndex(source)
	if stringsLoc == nil || conditionLoc == nil {
		return nil, fmt.Errorf("missing strings: or condition: section")
	}
	if conditionLoc[0] < stringsLoc[1] {
		return nil, fmt.Errorf("condition: must follow strings:")
	}

	stringsBody := source[stringsLoc[1]:conditionLoc[0]]
	conditionBody := strings.TrimRight(source[conditionLoc[1]:], " \t\r\n}")

	matches := yaraStringPattern.FindAllStringSubmatch(stringsBody, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no string literals declared")
	}

	ac := cache.NewAhoCorasick()
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		id, literal := m[1], unescapeYaraString(m[2])
		ac.AddPattern(literal, id)
		ids = append(ids, id)
	}
	ac.Build()

	return &compiledYaraRule{ac: ac, stringIDs: ids, condition: strings.TrimSpace(conditionBody)}, nil
}

func unescapeYaraString(s string) string {
	replacer := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t")
	return replacer.Replace(s)
}

// evalYaraCondition evaluates a YARA condition body referencing $string_ids,
// "and"/"or"/"not", parentheses, and the aggregate forms "any of them" /
// "all of them".
func evalYaraCondition(condition string, stringIDs []string, matched map[string]bool) (bool, error) {
	tokens, err := tokenizeYaraCondition(condition)
	if err != nil {
		return false, err
	}
	p := &yaraParser{tokens: tokens, stringIDs: stringIDs, matched: matched}
	result, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.tokens) {
		return false, fmt.Errorf("unexpected token %q", p.tokens[p.pos])
	}
	return result, nil
}

func tokenizeYaraCondition(condition string) ([]string, error) {
	var raw []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			raw = append(raw, cur.String())
			cur.Reset()
		}
	}
	for _, r := range condition {
		switch {
		case r == '(' || r == ')':
			flush()
			raw = append(raw, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty condition")
	}

	tokens := make([]string, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if strings.EqualFold(raw[i], "any") && i+2 < len(raw) &&
			strings.EqualFold(raw[i+1], "of") && strings.EqualFold(raw[i+2], "them") {
			tokens = append(tokens, "%any_them%")
			i += 2
			continue
		}
		if strings.EqualFold(raw[i], "all") && i+2 < len(raw) &&
			strings.EqualFold(raw[i+1], "of") && strings.EqualFold(raw[i+2], "them") {
			tokens = append(tokens, "%all_them%")
			i += 2
			continue
		}
		tokens = append(tokens, raw[i])
	}
	return tokens, nil
}

type yaraParser struct {
	tokens    []string
	pos       int
	stringIDs []string
	matched   map[string]bool
}

func (p *yaraParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *yaraParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *yaraParser) parseOr() (bool, error) {
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

func (p *yaraParser) parseAnd() (bool, error) {
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

func (p *yaraParser) parseNot() (bool, error) {
	if strings.EqualFold(p.peek(), "not") {
		p.next()
		v, err := p.parseNot()
		return !v, err
	}
	return p.parseAtom()
}

func (p *yaraParser) parseAtom() (bool, error) {
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
	case tok == "%any_them%":
		for _, id := range p.stringIDs {
			if p.matched[id] {
				return true, nil
			}
		}
		return false, nil
	case tok == "%all_them%":
		for _, id := range p.stringIDs {
			if !p.matched[id] {
				return false, nil
			}
		}
		return true, nil
	case strings.HasPrefix(tok, "$"):
		return p.matched[tok], nil
	case tok == "":
		return false, fmt.Errorf("unexpected end of condition")
	default:
		return false, fmt.Errorf("unsupported condition token %q", tok)
	}
}
