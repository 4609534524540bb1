// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package eventprocessor consumes raw_logs, deduplicates, normalizes,
// enriches, and indexes events, then hands the enriched event off to the
// detection engine over enriched_logs. Events that fail index writes after
// retry are routed to the dead-letter queue instead of blocking the
// consumer group.
package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wardenlog/wardenlog/internal/bus"
	"github.com/wardenlog/wardenlog/internal/cache"
	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/models"
	"github.com/wardenlog/wardenlog/internal/storage"
)

// ProcessorConfig holds the tunables spec.md §4.5 calls out by name:
// the dedup window, and the index-write retry shape (base/cap/attempts).
type ProcessorConfig struct {
	DedupCapacity    int
	DedupTTL         time.Duration
	IndexRetryBase   time.Duration
	IndexRetryCap    time.Duration
	IndexRetryMax    int
	GeoCacheCapacity int
	GeoCacheTTL      time.Duration
	RDNSCacheTTL     time.Duration
}

// DefaultProcessorConfig matches spec.md §4.5's stated defaults: a 5 minute
// dedup window and a 200ms/30s/jittered index-write retry.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		DedupCapacity:    100000,
		DedupTTL:         5 * time.Minute,
		IndexRetryBase:   200 * time.Millisecond,
		IndexRetryCap:    30 * time.Second,
		IndexRetryMax:    5,
		GeoCacheCapacity: 50000,
		GeoCacheTTL:      time.Hour,
		RDNSCacheTTL:     time.Hour,
	}
}

// Processor is the Processor service of spec.md §4.5: a raw_logs consumer
// group member that normalizes, deduplicates, enriches, and indexes events
// before handing them to detection.
type Processor struct {
	cfg      ProcessorConfig
	consumer *bus.Consumer
	producer *bus.Producer
	index    *storage.Index
	dedup    *cache.LRUCache
	enricher *Enricher
	dlq      *PersistentDLQHandler
	log      *logging.EventLogger
}

// NewProcessor wires the consumer, index, dedup cache, enricher, and DLQ
// into a runnable Processor. producer is used to hand enriched events off
// to the detection engine over enriched_logs.
func NewProcessor(cfg ProcessorConfig, consumer *bus.Consumer, producer *bus.Producer, index *storage.Index, enricher *Enricher, dlq *PersistentDLQHandler) *Processor {
	return &Processor{
		cfg:      cfg,
		consumer: consumer,
		producer: producer,
		index:    index,
		dedup:    cache.NewLRUCache(cfg.DedupCapacity, cfg.DedupTTL),
		enricher: enricher,
		dlq:      dlq,
		log:      logging.NewEventLogger(),
	}
}

// Run blocks consuming raw_logs until ctx is canceled.
func (p *Processor) Run(ctx context.Context) error {
	return p.consumer.Run(ctx, bus.TopicRawLogs, p.handle)
}

// handle implements the per-message pipeline: dedup check, normalize,
// enrich, index, detection handoff. Per spec.md §4.5 step 6, the offset
// commits once the index write acknowledges, full stop -- the detection
// handoff is a best-effort tap on the already-committed event, not a gate
// on redelivery, so a transient detection-forward failure is logged and
// does not wedge or duplicate-drop the event on the next delivery attempt.
// The dedup fingerprint is marked only after that commit point, so a
// message that is nacked before it (decode failure) is free to re-enter
// the full pipeline on redelivery instead of being swallowed as a
// duplicate of its own failed first attempt.
func (p *Processor) handle(ctx context.Context, key string, value []byte) error {
	var event models.Event
	if err := event.UnmarshalBinary(value); err != nil {
		return fmt.Errorf("decode event %s: %w", key, err)
	}

	fingerprint := Fingerprint(&event)
	if p.dedup.Seen(fingerprint) {
		p.log.LogDuplicate(ctx, event.ID, "fingerprint match within dedup window")
		return nil
	}

	Normalize(&event)
	p.enricher.Enrich(ctx, &event)

	start := time.Now()
	if err := p.writeIndexed(ctx, &event); err != nil {
		p.dlq.AddEntry(&event, err, key)
		p.log.LogDLQEntry(ctx, event.ID, err, 0)
		// The event is durably parked in the DLQ; commit so a
		// permanently-bad event does not wedge the consumer group.
		return nil
	}
	p.log.LogEventProcessed(ctx, event.ID, time.Since(start).Milliseconds())
	p.dedup.Mark(fingerprint)

	if err := p.forwardToDetection(ctx, &event); err != nil {
		p.log.LogEventFailed(ctx, event.ID, err)
	} else {
		p.log.LogEventPublished(ctx, event.ID, bus.TopicEnrichedLogs)
	}

	return nil
}

// writeIndexed writes the event to its time-partitioned table with
// exponential backoff (base 200ms, cap 30s, jitter), per spec.md §4.5.
func (p *Processor) writeIndexed(ctx context.Context, event *models.Event) error {
	if err := p.index.EnsureTemplate(ctx, event.Timestamp); err != nil {
		return fmt.Errorf("ensure index template: %w", err)
	}

	retry := p.indexRetryPolicy(ctx)
	return backoff.Retry(func() error {
		return p.index.Put(ctx, event)
	}, retry)
}

func (p *Processor) indexRetryPolicy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.cfg.IndexRetryBase
	eb.MaxInterval = p.cfg.IndexRetryCap
	eb.Multiplier = 2.0
	eb.RandomizationFactor = 0.1
	eb.MaxElapsedTime = 0

	bounded := backoff.WithMaxRetries(eb, uint64(p.cfg.IndexRetryMax))
	return backoff.WithContext(bounded, ctx)
}

// forwardToDetection publishes the enriched event to enriched_logs so the
// detection engine's own consumer group can evaluate rules against it.
func (p *Processor) forwardToDetection(ctx context.Context, event *models.Event) error {
	if p.producer == nil {
		return fmt.Errorf("enriched_logs producer not configured")
	}
	payload, err := event.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal enriched event: %w", err)
	}
	return p.producer.PublishSync(ctx, bus.TopicEnrichedLogs, event.ID, payload)
}
