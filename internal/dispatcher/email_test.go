// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package dispatcher

import (
	"context"
	"strings"
	"testing"
)

func TestEmailChannelBuildMessageIncludesHeaders(t *testing.T) {
	ch := NewEmailChannel("smtp.example.com", 587, "alerts@wardenlog.local", []string{"soc@example.com"})
	msg := ch.buildMessage(testAlert())

	for _, want := range []string{
		"Subject: [HIGH] Suspicious login from new country",
		"To: soc@example.com",
		"X-Alert-ID: alert-1",
		"Rule:        Suspicious login",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q, got:\n%s", want, msg)
		}
	}
}

func TestEmailChannelErrorsWhenNotConfigured(t *testing.T) {
	ch := NewEmailChannel("", 0, "", nil)
	if err := ch.Send(context.Background(), testAlert()); err == nil {
		t.Fatal("expected an error for an unconfigured channel")
	}
}
