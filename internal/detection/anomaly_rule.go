// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package detection

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/models"
	"github.com/wardenlog/wardenlog/internal/ruleeval"
)

// minAnomalySamples is how many observations a field's running model needs
// before it contributes to a score; below this, the model is still warming
// up and every event for it is a non-match rather than a guaranteed outlier.
const minAnomalySamples = 30

// unscopedEventType is the model key used for events whose type doesn't
// match any populated spec.EventType, so they still pool into one shared
// model instead of each falling through to an empty-string key.
const unscopedEventType = "_unscoped"

// AnomalyEvaluator scores an event against a statistical model keyed by
// event_type: each declared numeric field is standardized with a running
// mean/variance (Welford's online algorithm), each declared categorical
// field is hashed into a bucket and scored by its observed rarity, and the
// event's anomaly score is the mean absolute per-field deviation. A rule
// alerts once its score exceeds its configured threshold. Two rules that
// both target the same event_type pool their observations into the same
// model, matching an unsupervised outlier model keyed by event_type rather
// than isolating state per rule declaration.
//
// No third-party statistics/ML library in the retrieval pack covers online
// single-pass mean/variance estimation; this is a closed, well-known
// algorithm better expressed directly over math.Sqrt than pulled in through
// a general-purpose numerics dependency.
type AnomalyEvaluator struct {
	mu     sync.Mutex
	models map[string]*ruleModel // keyed by event_type
}

// NewAnomalyEvaluator returns an AnomalyEvaluator with empty per-event_type
// state.
func NewAnomalyEvaluator() *AnomalyEvaluator {
	return &AnomalyEvaluator{models: make(map[string]*ruleModel)}
}

// Kind identifies the rule kind this evaluator handles.
func (*AnomalyEvaluator) Kind() models.RuleKind { return models.RuleKindAnomaly }

// Evaluate scores event against rule's anomaly model, updating the model's
// running statistics regardless of whether this event alerts.
func (e *AnomalyEvaluator) Evaluate(_ context.Context, rule *models.Rule, event *models.Event) (*models.Alert, error) {
	var spec models.AnomalyRuleSpec
	if err := json.Unmarshal(rule.Spec, &spec); err != nil {
		return nil, fmt.Errorf("decode anomaly rule spec: %w", err)
	}
	if spec.EventType != "" && spec.EventType != event.EventType {
		return nil, nil
	}

	fields, err := ruleeval.Fields(event)
	if err != nil {
		return nil, fmt.Errorf("flatten event: %w", err)
	}

	eventType := event.EventType
	if eventType == "" {
		eventType = unscopedEventType
	}
	model := e.modelFor(eventType)

	var deviations []float64
	matched := make(map[string]interface{})
	for _, field := range spec.NumericFields {
		v, ok := ruleeval.Get(fields, field)
		if !ok {
			continue
		}
		f, ok := asNumeric(v)
		if !ok {
			continue
		}
		stat := model.numeric(field)
		dev, ready := stat.observe(f)
		if ready {
			deviations = append(deviations, dev)
		}
		matched[field] = f
	}
	for _, field := range spec.CategoryFields {
		v, ok := ruleeval.Get(fields, field)
		if !ok {
			continue
		}
		bucket := model.category(field)
		rarity, ready := bucket.observe(hashCategory(v))
		if ready {
			deviations = append(deviations, rarity)
		}
		matched[field] = v
	}

	if len(deviations) == 0 {
		return nil, nil
	}

	score := mean(deviations)
	threshold := spec.Threshold
	if threshold <= 0 {
		threshold = 3.0
	}
	if score <= threshold {
		return nil, nil
	}

	matched["anomaly_score"] = score
	return newAlert(rule, event, matched), nil
}

// modelFor returns the shared running-statistics model for eventType,
// creating it on first use. Every anomaly rule scoped to the same
// event_type observes into this same model.
func (e *AnomalyEvaluator) modelFor(eventType string) *ruleModel {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.models[eventType]
	if !ok {
		m = newRuleModel()
		e.models[eventType] = m
	}
	return m
}

// ruleModel holds the running statistics for one event_type, keyed by
// field name so numeric and categorical fields each get an independent
// model within it.
type ruleModel struct {
	mu         sync.Mutex
	numerics   map[string]*runningStat
	categories map[string]*categoryStat
}

func newRuleModel() *ruleModel {
	return &ruleModel{
		numerics:   make(map[string]*runningStat),
		categories: make(map[string]*categoryStat),
	}
}

func (m *ruleModel) numeric(field string) *runningStat {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.numerics[field]
	if !ok {
		s = &runningStat{}
		m.numerics[field] = s
	}
	return s
}

func (m *ruleModel) category(field string) *categoryStat {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.categories[field]
	if !ok {
		s = &categoryStat{counts: make(map[uint64]int64)}
		m.categories[field] = s
	}
	return s
}

// runningStat tracks a numeric field's mean and variance online via
// Welford's algorithm, avoiding a second pass or an unbounded sample buffer.
type runningStat struct {
	mu    sync.Mutex
	count int64
	mean  float64
	m2    float64
}

// observe folds v into the running model and returns its absolute z-score
// plus whether the model has enough samples to trust that score.
func (s *runningStat) observe(v float64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	delta := v - s.mean
	s.mean += delta / float64(s.count)
	delta2 := v - s.mean
	s.m2 += delta * delta2

	if s.count < minAnomalySamples {
		return 0, false
	}
	variance := s.m2 / float64(s.count-1)
	if variance <= 0 {
		return 0, false
	}
	z := math.Abs(v-s.mean) / math.Sqrt(variance)
	return z, true
}

// categoryStat tracks how often each hashed categorical value has been
// observed, and scores a value's rarity as an inverse-frequency pseudo
// z-score comparable to runningStat's output.
type categoryStat struct {
	mu     sync.Mutex
	total  int64
	counts map[uint64]int64
}

func (s *categoryStat) observe(bucket uint64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.counts[bucket]++

	if s.total < minAnomalySamples {
		return 0, false
	}
	freq := float64(s.counts[bucket]) / float64(s.total)
	// Rarer values score higher; a value seen on every observation scores 0,
	// one seen once in minAnomalySamples observations scores close to 1/freq.
	return (1 - freq) / freq, true
}

func hashCategory(v interface{}) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%v", v)
	return h.Sum64()
}

func asNumeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
