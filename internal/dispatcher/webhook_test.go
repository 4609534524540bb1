// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package dispatcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wardenlog/wardenlog/internal/models"
)

func testAlert() *models.Alert {
	return &models.Alert{
		ID:          "alert-1",
		RuleID:      "rule-1",
		RuleName:    "Suspicious login",
		Severity:    models.SeverityHigh,
		Title:       "Suspicious login from new country",
		Description: "User admin logged in from a new ASN",
		Timestamp:   time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		SourceEvent: models.Event{Source: "auth-service", EventType: "login"},
	}
}

func TestWebhookChannelPostsAlertPayload(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL)
	if err := ch.Send(context.Background(), testAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected json content type, got %q", gotContentType)
	}
}

func TestWebhookChannelErrorsWhenNotConfigured(t *testing.T) {
	ch := NewWebhookChannel("")
	if err := ch.Send(context.Background(), testAlert()); err == nil {
		t.Fatalf("expected an error for an unconfigured channel")
	}
}

func TestWebhookChannelErrorsOnNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL)
	if err := ch.Send(context.Background(), testAlert()); err == nil {
		t.Fatalf("expected an error on a 500 response")
	}
}
