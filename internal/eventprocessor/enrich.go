// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package eventprocessor

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/wardenlog/wardenlog/internal/models"
	"github.com/wardenlog/wardenlog/internal/threatintel"
)

// ipFieldSuffixes are the data field name suffixes the enricher treats as
// carrying an IP address worth a GeoIP/reverse-DNS/threat-intel lookup,
// checked alongside a net.ParseIP sniff of the field's string value.
var ipFieldSuffixes = []string{"_ip", "ip_address"}

var hashFieldSuffixes = []string{"_hash", "hash", "sha256", "md5", "sha1"}

var domainFieldSuffixes = []string{"_domain", "domain", "hostname", "fqdn"}

// Enricher attaches enriched.* fields to normalized events: GeoIP on
// IP-typed fields, reverse DNS (cached, TTL >= 1h), and threat-intel
// membership lookups (cached per indicator kind via the bloom-screened
// Store). Enrichment failures are non-fatal; they accumulate under
// enriched.errors instead of failing the event.
type Enricher struct {
	geo    *GeoResolver
	rdns   *reverseDNSCache
	intel  *threatintel.Store
	lookup time.Duration
}

// NewEnricher wires the three enrichers the Processor runs per event.
// intel may be nil when no threat-intel lists are configured.
func NewEnricher(geo *GeoResolver, rdns *reverseDNSCache, intel *threatintel.Store) *Enricher {
	return &Enricher{geo: geo, rdns: rdns, intel: intel, lookup: 5 * time.Second}
}

// NewEnricherFromConfig builds the GeoResolver and reverse-DNS cache from
// cfg's cache tunables and wires them into an Enricher, for callers outside
// this package that cannot name the unexported reverseDNSCache type
// directly. intel may be nil when no threat-intel lists are configured.
func NewEnricherFromConfig(cfg ProcessorConfig, intel *threatintel.Store) *Enricher {
	geo := NewGeoResolver(cfg.GeoCacheCapacity, cfg.GeoCacheTTL)
	rdns := newReverseDNSCache(cfg.GeoCacheCapacity, cfg.RDNSCacheTTL)
	return NewEnricher(geo, rdns, intel)
}

// Enrich mutates e.Enriched in place.
func (en *Enricher) Enrich(ctx context.Context, e *models.Event) {
	if e.Enriched == nil {
		e.Enriched = make(map[string]interface{})
	}
	e.Enriched["processing_timestamp"] = time.Now().UTC()

	var errs []string
	for field, raw := range e.Data {
		value, ok := raw.(string)
		if !ok || value == "" {
			continue
		}

		switch {
		case net.ParseIP(value) != nil && hasSuffix(field, ipFieldSuffixes):
			errs = append(errs, en.enrichIP(ctx, e, field, value)...)
		case hasSuffix(field, domainFieldSuffixes):
			en.enrichIndicator(e, field, threatintel.KindDomain, value)
		case hasSuffix(field, hashFieldSuffixes):
			en.enrichIndicator(e, field, threatintel.KindHash, value)
		}
	}

	if len(errs) > 0 {
		e.Enriched["errors"] = errs
	}
}

func (en *Enricher) enrichIP(ctx context.Context, e *models.Event, field, ip string) []string {
	var errs []string

	lookupCtx, cancel := context.WithTimeout(ctx, en.lookup)
	defer cancel()

	if en.geo != nil {
		if loc, err := en.geo.Resolve(lookupCtx, ip); err != nil {
			errs = append(errs, "geoip("+field+"): "+err.Error())
		} else if loc != nil {
			e.Enriched["geo_"+field] = loc
		}
	}

	if en.rdns != nil {
		if host := en.rdns.Lookup(lookupCtx, ip); host != "" {
			e.Enriched["rdns_"+field] = host
		}
	}

	en.enrichIndicator(e, field, threatintel.KindIP, ip)
	return errs
}

func (en *Enricher) enrichIndicator(e *models.Event, field string, kind threatintel.Kind, value string) {
	if en.intel == nil {
		return
	}
	if match, ok := en.intel.Lookup(kind, value); ok {
		e.Enriched["threat_match_"+field] = match
	}
}

func hasSuffix(field string, suffixes []string) bool {
	lower := strings.ToLower(field)
	for _, suffix := range suffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
