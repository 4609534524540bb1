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

// syslogPattern matches BSD-style syslog:
//
//	MMM d HH:mm:ss host program[pid]: message
var syslogPattern = regexp.MustCompile(
	`^([A-Z][a-z]{2})\s+(\d{1,2}) (\d{2}):(\d{2}):(\d{2}) (\S+) ([^\[:]+)(?:\[(\d+)\])?: (.*)$`,
)

var syslogMonths = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// parseSyslog parses a single BSD-style syslog line. The year is not present
// in the wire format, so it is injected: the current year if the parsed
// month is on or before the current month, otherwise the previous year,
// which handles year rollover for lines emitted near January 1st.
func parseSyslog(source, line string) (*Result, error) {
	matches := syslogPattern.FindStringSubmatch(line)
	if matches == nil {
		return nil, &ErrNoMatch{Format: FormatSyslog}
	}

	monthStr, dayStr, hourStr, minStr, secStr, host, program, pid, message :=
		matches[1], matches[2], matches[3], matches[4], matches[5], matches[6], matches[7], matches[8], matches[9]

	month, ok := syslogMonths[monthStr]
	if !ok {
		return nil, &ErrNoMatch{Format: FormatSyslog}
	}

	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return nil, &ErrNoMatch{Format: FormatSyslog}
	}
	hour, _ := strconv.Atoi(hourStr)
	minute, _ := strconv.Atoi(minStr)
	second, _ := strconv.Atoi(secStr)

	year := resolveSyslogYear(month, time.Now().UTC())
	ts := time.Date(year, month, day, hour, minute, second, 0, time.UTC)

	data := map[string]interface{}{
		"host":    host,
		"program": program,
		"message": message,
	}
	if pid != "" {
		data["pid"] = pid
	}

	return &Result{
		Source:    source,
		EventType: "log",
		Timestamp: ts,
		Data:      data,
	}, nil
}

// resolveSyslogYear picks the year to attach to a syslog timestamp that
// carries no year of its own. If the parsed month is after the current
// month, the line must have been emitted last year (rollover near
// December/January boundaries); otherwise it is this year.
func resolveSyslogYear(month time.Month, now time.Time) int {
	if month > now.Month() {
		return now.Year() - 1
	}
	return now.Year()
}
