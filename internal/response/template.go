// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package response

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/wardenlog/wardenlog/internal/models"
	"github.com/wardenlog/wardenlog/internal/ruleeval"
)

// renderParameters renders every value in params as a Go template against
// alert's flattened fields (so "{{ alert.matched_fields.source_ip }}"
// resolves the same dotted path a trigger condition would). No functions
// are registered and missingkey=error is set, so a template can only read
// alert data -- never call out, format dates, or silently swallow a typo'd
// field path.
func renderParameters(params map[string]string, alert *models.Alert) (map[string]string, error) {
	fields, err := ruleeval.Fields(alert)
	if err != nil {
		return nil, fmt.Errorf("flatten alert: %w", err)
	}
	data := map[string]interface{}{"alert": fields}

	rendered := make(map[string]string, len(params))
	for name, raw := range params {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse parameter %q: %w", name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render parameter %q: %w", name, err)
		}
		rendered[name] = buf.String()
	}
	return rendered, nil
}
