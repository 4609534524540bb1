// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// RuleKind selects which evaluator owns a Rule.
type RuleKind string

const (
	RuleKindCustom  RuleKind = "custom"
	RuleKindSigma   RuleKind = "sigma"
	RuleKindYARA    RuleKind = "yara"
	RuleKindAnomaly RuleKind = "anomaly"
)

// Severity is the alert severity scale. Order matters: higher index is more severe.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rule is the tagged-variant detection rule. Spec is the raw JSON payload for
// whichever variant Kind selects; evaluators decode it lazily at load time.
type Rule struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Kind       RuleKind `json:"type"`
	Severity   Severity `json:"severity"`
	Tags       []string `json:"tags,omitempty"`
	Enabled    bool     `json:"enabled"`
	EventTypes []string `json:"event_types,omitempty"`
	Sources    []string `json:"sources,omitempty"`

	ThrottleWindow time.Duration `json:"throttle_window,omitempty"`
	// FingerprintBy scopes the throttle key: dotted paths evaluated against
	// the matched event (data/enriched/top-level). Empty defaults to the
	// rule's own match key (e.g. the source IP field it alerted on).
	FingerprintBy []string `json:"fingerprint_by,omitempty"`

	Spec json.RawMessage `json:"spec"`
}

// CustomCondition is one leaf of a custom rule's condition tree.
type CustomCondition struct {
	Field string      `json:"field"`
	Op    Operator    `json:"op"`
	Value interface{} `json:"value"`
}

// Operator enumerates the field-condition operators of spec.md §3.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
	OpNotIn    Operator = "not_in"
	OpContains Operator = "contains"
	OpRegex    Operator = "regex"
)

// Join combines sub-expressions of a custom rule's condition tree.
type Join string

const (
	JoinAnd Join = "AND"
	JoinOr  Join = "OR"
)

// CustomExpr is a node in the condition tree: either a leaf Condition, or a
// Join of Children. Exactly one of Condition/Children is set.
type CustomExpr struct {
	Condition *CustomCondition `json:"condition,omitempty"`
	Join      Join             `json:"join,omitempty"`
	Children  []CustomExpr     `json:"children,omitempty"`
}

// CustomRuleSpec is the decoded Rule.Spec for RuleKindCustom.
type CustomRuleSpec struct {
	Root CustomExpr `json:"root"`
}

// SigmaRuleSpec is the decoded Rule.Spec for RuleKindSigma: the textual Sigma
// rule plus a pre-parsed logsource match for selection pruning.
type SigmaRuleSpec struct {
	LogSource SigmaLogSource         `json:"logsource"`
	Detection map[string]interface{} `json:"detection"`
	Condition string                 `json:"condition"`
	RawYAML   string                 `json:"raw_yaml,omitempty"`
}

// SigmaLogSource narrows which events a sigma rule is even considered for.
type SigmaLogSource struct {
	Category string `json:"category,omitempty"`
	Product  string `json:"product,omitempty"`
	Service  string `json:"service,omitempty"`
}

// YARARuleSpec is the decoded Rule.Spec for RuleKindYARA.
type YARARuleSpec struct {
	// Source is YARA-dialect rule source text, compiled once at load.
	Source string `json:"source"`
	// ContentField is the dotted path into Event.Data/Enriched holding the
	// blob (or a filesystem path to one) to scan.
	ContentField string `json:"content_field"`
}

// AnomalyRuleSpec is the decoded Rule.Spec for RuleKindAnomaly.
type AnomalyRuleSpec struct {
	EventType      string   `json:"event_type"`
	NumericFields  []string `json:"numeric_fields"`
	CategoryFields []string `json:"category_fields"`
	Threshold      float64  `json:"threshold"`
}

// Alert is emitted once per (rule, fingerprint) within the rule's throttle window.
type Alert struct {
	ID            string                 `json:"id"`
	RuleID        string                 `json:"rule_id"`
	RuleName      string                 `json:"rule_name"`
	Severity      Severity               `json:"severity"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Timestamp     time.Time              `json:"timestamp"`
	SourceEvent   Event                  `json:"source_event"`
	MatchedFields map[string]interface{} `json:"matched_fields"`
	Tags          []string               `json:"tags,omitempty"`
}

// MarshalBinary satisfies bus transport requirements (Watermill payloads).
func (a *Alert) MarshalBinary() ([]byte, error) { return json.Marshal(a) }

// UnmarshalBinary decodes a bus payload back into an Alert.
func (a *Alert) UnmarshalBinary(data []byte) error { return json.Unmarshal(data, a) }
