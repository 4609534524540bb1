// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package threatintel

import (
	"bufio"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wardenlog/wardenlog/internal/cache"
	"github.com/wardenlog/wardenlog/internal/logging"
)

// Kind is the indicator type a Store lookup is checked against.
type Kind string

const (
	KindIP     Kind = "ip"
	KindDomain Kind = "domain"
	KindHash   Kind = "hash"
)

// Match is a positive indicator lookup result.
type Match struct {
	Kind   Kind
	Value  string
	Source string // the file the indicator was loaded from
}

// list holds one indicator kind's exact set plus a bloom pre-screen, the
// same two-stage membership shape the teacher's dedup caches use: a cheap
// negative check before a map lookup, here sized for IoC lists that can run
// into the hundreds of thousands of entries.
type list struct {
	bloom *cache.BloomFilter
	exact map[string]string // indicator -> source file
	mu    sync.RWMutex
}

func newList(expected int) *list {
	return &list{
		bloom: cache.NewBloomFilter(expected, 0.01),
		exact: make(map[string]string, expected),
	}
}

func (l *list) add(value, source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bloom.Add(value)
	l.exact[value] = source
}

func (l *list) lookup(value string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.bloom.Test(value) {
		return "", false
	}
	src, ok := l.exact[value]
	return src, ok
}

func (l *list) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.exact)
}

// Store is a reloadable in-memory index of IoC lists, one per Kind.
// Safe for concurrent lookups while Reload replaces the indicator sets.
type Store struct {
	paths []string

	mu    sync.RWMutex
	lists map[Kind]*list
}

// New builds an empty Store over the given file paths (one file per
// indicator kind, kind inferred from the filename — see classifyPath).
// Call Reload to populate it.
func New(paths []string) *Store {
	return &Store{paths: paths, lists: emptyLists()}
}

func emptyLists() map[Kind]*list {
	return map[Kind]*list{
		KindIP:     newList(1024),
		KindDomain: newList(1024),
		KindHash:   newList(1024),
	}
}

// Reload re-reads every configured path from disk and atomically swaps in
// the new indicator sets, matching the rule-store's file-watch hot-reload
// shape (spec.md §4.7) so an operator can update IoC lists without a
// restart.
func (s *Store) Reload() error {
	fresh := emptyLists()
	for _, path := range s.paths {
		kind, ok := classifyPath(path)
		if !ok {
			logging.Warn().Str("path", path).Msg("threatintel: cannot classify indicator file, skipping")
			continue
		}
		n, err := loadFile(path, kind, fresh[kind])
		if err != nil {
			return fmt.Errorf("threatintel: load %s: %w", path, err)
		}
		logging.Info().Str("path", path).Str("kind", string(kind)).Int("count", n).Msg("threatintel: loaded indicator list")
	}

	s.mu.Lock()
	s.lists = fresh
	s.mu.Unlock()
	return nil
}

// classifyPath infers an indicator kind from a file's base name. Files are
// expected to be named by convention (ips.txt, domains.txt, hashes.txt, or
// any name containing one of those words); anything else is rejected so a
// misnamed file fails loudly at startup rather than silently loading into
// the wrong bucket.
func classifyPath(path string) (Kind, bool) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "ip"):
		return KindIP, true
	case strings.Contains(name, "domain"):
		return KindDomain, true
	case strings.Contains(name, "hash"):
		return KindHash, true
	default:
		return "", false
	}
}

// loadFile reads one indicator per line into dst, skipping blank lines and
// "#"-prefixed comments. IP entries are normalized via netip so "1.2.3.4"
// and "1.2.3.4 " match identically; domains and hashes are lower-cased.
func loadFile(path string, kind Kind, dst *list) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		normalized := normalize(kind, line)
		if normalized == "" {
			continue
		}
		dst.add(normalized, path)
		n++
	}
	return n, scanner.Err()
}

func normalize(kind Kind, value string) string {
	switch kind {
	case KindIP:
		addr, err := netip.ParseAddr(value)
		if err != nil {
			return ""
		}
		return addr.String()
	default:
		return strings.ToLower(value)
	}
}

// Lookup reports whether value is a known indicator of kind, and the file
// it was sourced from when found.
func (s *Store) Lookup(kind Kind, value string) (*Match, bool) {
	normalized := normalize(kind, value)
	if normalized == "" {
		return nil, false
	}
	s.mu.RLock()
	l := s.lists[kind]
	s.mu.RUnlock()
	if l == nil {
		return nil, false
	}
	src, ok := l.lookup(normalized)
	if !ok {
		return nil, false
	}
	return &Match{Kind: kind, Value: normalized, Source: src}, true
}

// Len reports how many indicators of kind are currently loaded.
func (s *Store) Len(kind Kind) int {
	s.mu.RLock()
	l := s.lists[kind]
	s.mu.RUnlock()
	if l == nil {
		return 0
	}
	return l.len()
}
