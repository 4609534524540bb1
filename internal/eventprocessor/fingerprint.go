// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package eventprocessor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/wardenlog/wardenlog/internal/models"
)

// volatileDataFields are excluded from the dedup fingerprint because they
// vary between otherwise-identical retransmits of the same event.
var volatileDataFields = map[string]struct{}{
	"timestamp":  {},
	"request_id": {},
	"trace_id":   {},
}

// Fingerprint computes a stable hash over (source, event_type, a
// canonicalized subset of data) so two deliveries of the same underlying
// event collapse to the same dedup key regardless of field ordering.
func Fingerprint(e *models.Event) string {
	var b strings.Builder
	b.WriteString(e.Source)
	b.WriteByte('\x00')
	b.WriteString(e.EventType)
	b.WriteByte('\x00')

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if _, volatile := volatileDataFields[k]; volatile {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(canonicalScalar(e.Data[k]))
		b.WriteByte('\x00')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// canonicalScalar renders a data value as a stable string for hashing.
// Nested maps/slices are rare in practice for log fields; a %v rendering
// is stable for a given Go value even though it is not a canonical JSON
// encoding.
func canonicalScalar(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "\x01nil"
	default:
		return fmt.Sprintf("%v", t)
	}
}
