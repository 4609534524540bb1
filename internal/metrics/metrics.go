// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts Collector HTTP requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_http_requests_total",
			Help: "Total Collector HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks Collector HTTP handler latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collector_http_request_duration_seconds",
			Help:    "Collector HTTP handler latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RateLimitRejections counts requests rejected by a quota.
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_rejections_total",
			Help: "Total requests rejected by a rate-limit quota",
		},
		[]string{"endpoint", "quota"},
	)

	// LoginLockouts counts accounts that hit the failed-login threshold.
	LoginLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_login_lockouts_total",
			Help: "Total logins rejected due to lockout",
		},
	)

	// BusPublishTotal counts bus publish attempts by topic and outcome.
	BusPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_publish_total",
			Help: "Total bus publish attempts",
		},
		[]string{"topic", "outcome"},
	)

	// BusPublishDuration tracks publish-to-ack latency.
	BusPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bus_publish_duration_seconds",
			Help:    "Bus publish-to-ack latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	// ProcessorEventsConsumed counts raw events consumed by the Processor.
	ProcessorEventsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "processor_events_consumed_total",
			Help: "Total raw events consumed by the Processor",
		},
	)

	// ProcessorEventsDeduped counts events dropped as duplicates.
	ProcessorEventsDeduped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "processor_events_deduped_total",
			Help: "Total events dropped by the dedup cache",
		},
	)

	// ProcessorEnrichErrors counts non-fatal enrichment failures by enricher.
	ProcessorEnrichErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processor_enrich_errors_total",
			Help: "Total non-fatal enrichment errors",
		},
		[]string{"enricher"},
	)

	// ProcessorIndexWriteDuration tracks index write latency.
	ProcessorIndexWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "processor_index_write_duration_seconds",
			Help:    "Index write latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ProcessorDLQTotal counts events routed to the dead-letter topic.
	ProcessorDLQTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "processor_dlq_total",
			Help: "Total events routed to the dead-letter topic",
		},
	)

	// DetectionEventsProcessed counts events evaluated by the Detection engine.
	DetectionEventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "detection_events_processed_total",
			Help: "Total events evaluated against detection rules",
		},
	)

	// DetectionAlertsEmitted counts alerts emitted, by rule type and severity.
	DetectionAlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_alerts_emitted_total",
			Help: "Total alerts emitted",
		},
		[]string{"rule_type", "severity"},
	)

	// DetectionAlertsThrottled counts matches suppressed by throttling.
	DetectionAlertsThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "detection_alerts_throttled_total",
			Help: "Total rule matches suppressed by the throttle window",
		},
	)

	// DetectionEvaluatorErrors counts isolated evaluator errors by rule type.
	DetectionEvaluatorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_evaluator_errors_total",
			Help: "Total evaluator errors isolated from the evaluation loop",
		},
		[]string{"rule_type"},
	)

	// ResponseActionsExecuted counts playbook action executions by driver and status.
	ResponseActionsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_actions_executed_total",
			Help: "Total playbook action executions",
		},
		[]string{"driver", "status"},
	)

	// ResponseActionDuration tracks playbook action execution latency.
	ResponseActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "response_action_duration_seconds",
			Help:    "Playbook action execution latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver"},
	)

	// DispatchSent counts alert dispatch attempts by channel and outcome.
	DispatchSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_sent_total",
			Help: "Total alert dispatch attempts",
		},
		[]string{"channel", "outcome"},
	)

	// WebSocketConnections tracks currently connected alert-stream clients.
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of connected alert-stream WebSocket clients",
		},
	)
)
