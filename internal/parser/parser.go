// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

// Package parser provides stateless format detection and parsing for raw log
// lines submitted to POST /ingest/raw. Parsers never hold state across
// calls: each call receives a source name and a log line and returns a
// normalized event payload or an error.
//
// No third-party log-parsing library appears anywhere in the retrieval
// pack (grepped across every example repo's go.mod and other_examples/);
// these parsers are implemented on top of regexp and the standard library,
// which is the justified exception recorded in DESIGN.md.
package parser

import (
	"errors"
	"fmt"
	"time"
)

// Format names recognized by Parse and the auto-detector.
const (
	FormatApacheCombined = "apache_combined"
	FormatSyslog         = "syslog"
	FormatJSON           = "json"
	FormatAuto           = "auto"
)

// Result is the normalized output of parsing a single raw log line.
type Result struct {
	Source    string
	EventType string
	Timestamp time.Time
	Data      map[string]interface{}
}

// ErrNoMatch is returned by an individual format parser when the line does
// not match that format; Parse(FormatAuto, ...) uses it to fall through to
// the next candidate parser.
type ErrNoMatch struct {
	Format string
}

func (e *ErrNoMatch) Error() string {
	return fmt.Sprintf("log line does not match %s format", e.Format)
}

// ErrUnparseable is returned when FormatAuto exhausts every candidate
// parser without a match.
var ErrUnparseable = fmt.Errorf("could not parse log line with any known format")

// Parse dispatches to the named format's parser, or to the ordered
// auto-detection chain (json -> apache_combined -> syslog) when format is
// FormatAuto or empty.
func Parse(source, format, line string) (*Result, error) {
	switch format {
	case FormatApacheCombined:
		return parseApacheCombined(source, line)
	case FormatSyslog:
		return parseSyslog(source, line)
	case FormatJSON:
		return parseJSON(source, line)
	case FormatAuto, "":
		return parseAuto(source, line)
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}
}

func parseAuto(source, line string) (*Result, error) {
	candidates := []func(string, string) (*Result, error){
		parseJSON,
		parseApacheCombined,
		parseSyslog,
	}
	for _, candidate := range candidates {
		result, err := candidate(source, line)
		if err == nil {
			return result, nil
		}
		var noMatch *ErrNoMatch
		if !errors.As(err, &noMatch) {
			return nil, err
		}
	}
	return nil, ErrUnparseable
}
