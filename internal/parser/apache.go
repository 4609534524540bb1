// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package parser

import (
	"regexp"
	"strconv"
	"time"
)

// apacheCombinedPattern matches the Apache/NGINX "combined" log format:
//
//	remote_host ident user [time] "request" status size "referrer" "user_agent"
var apacheCombinedPattern = regexp.MustCompile(
	`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\d{3}) (\S+) "([^"]*)" "([^"]*)"`,
)

func parseApacheCombined(source, line string) (*Result, error) {
	matches := apacheCombinedPattern.FindStringSubmatch(line)
	if matches == nil {
		return nil, &ErrNoMatch{Format: FormatApacheCombined}
	}

	remoteHost, ident, user, rawTime, request, status, size, referrer, userAgent :=
		matches[1], matches[2], matches[3], matches[4], matches[5], matches[6], matches[7], matches[8], matches[9]

	ts, err := time.Parse("02/Jan/2006:15:04:05 -0700", rawTime)
	if err != nil {
		return nil, &ErrNoMatch{Format: FormatApacheCombined}
	}

	statusCode, err := strconv.Atoi(status)
	if err != nil {
		return nil, &ErrNoMatch{Format: FormatApacheCombined}
	}

	data := map[string]interface{}{
		"remote_host": remoteHost,
		"ident":       ident,
		"user":        user,
		"request":     request,
		"status":      statusCode,
		"referrer":    referrer,
		"user_agent":  userAgent,
	}
	if size != "-" {
		if sizeBytes, err := strconv.ParseInt(size, 10, 64); err == nil {
			data["size"] = sizeBytes
		}
	}

	return &Result{
		Source:    source,
		EventType: "log",
		Timestamp: ts,
		Data:      data,
	}, nil
}
