// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package collector

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// healthResponse is the body of GET /health (spec.md §6).
type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// handleHealth probes every registered dependency and reports "ok" or
// "unavailable" per service without failing the request: an unhealthy
// dependency is visible in the body, not a 5xx, so monitoring can
// distinguish "degraded" from "Collector itself is down".
func (c *Collector) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := make(map[string]string, len(c.healthChecks))
	overall := "ok"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range c.healthChecks {
		if err := check(ctx); err != nil {
			services[name] = "unavailable"
			overall = "degraded"
			continue
		}
		services[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Services:  services,
	})
}
