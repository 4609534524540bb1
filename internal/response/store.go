// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package response

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/models"
)

// FilePlaybookStore loads Playbook definitions from *.json files under a
// directory and atomically swaps in a fresh set on Reload, the same shape
// as detection.FileRuleStore for its rule files.
type FilePlaybookStore struct {
	dir string

	playbooks atomic.Pointer[[]models.Playbook]

	watcher  *fsnotify.Watcher
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewFilePlaybookStore creates a store rooted at dir and performs an
// initial load, creating dir if it does not yet exist.
func NewFilePlaybookStore(dir string) (*FilePlaybookStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	s := &FilePlaybookStore{dir: dir, stopped: make(chan struct{})}
	empty := []models.Playbook{}
	s.playbooks.Store(&empty)
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Playbooks returns the current playbook set snapshot.
func (s *FilePlaybookStore) Playbooks() []models.Playbook {
	return *s.playbooks.Load()
}

// Reload re-reads every playbook file under dir and atomically replaces
// the current set. A malformed file is skipped with a logged warning.
func (s *FilePlaybookStore) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	var loaded []models.Playbook
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		playbooks, err := loadPlaybookFile(path)
		if err != nil {
			logging.Warn().Err(err).Str("file", path).Msg("skipping malformed playbook file")
			continue
		}
		loaded = append(loaded, playbooks...)
	}

	s.playbooks.Store(&loaded)
	logging.Info().Int("playbooks", len(loaded)).Str("dir", s.dir).Msg("playbook store reloaded")
	return nil
}

func loadPlaybookFile(path string) ([]models.Playbook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var playbooks []models.Playbook
	if err := json.Unmarshal(raw, &playbooks); err == nil {
		return playbooks, nil
	}

	var single models.Playbook
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return []models.Playbook{single}, nil
}

// Watch starts a background file-system watch on dir and calls Reload on
// every write/create/rename/remove event, debounced against bursts from one
// save.
func (s *FilePlaybookStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return err
	}
	s.watcher = watcher

	go s.watchLoop(ctx)
	return nil
}

func (s *FilePlaybookStore) watchLoop(ctx context.Context) {
	const debounce = 250 * time.Millisecond
	var pending *time.Timer

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.stopped:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounce, func() {
				if err := s.Reload(); err != nil {
					logging.Error().Err(err).Msg("playbook store reload failed")
				}
			})
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Msg("playbook store watch error")
		}
	}
}

// Close stops the background file watch, if one was started.
func (s *FilePlaybookStore) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopped)
		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
