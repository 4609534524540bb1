// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package response

import (
	"context"
	"time"

	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/metrics"
	"github.com/wardenlog/wardenlog/internal/models"
	"github.com/wardenlog/wardenlog/internal/ruleeval"
)

// PlaybookStore exposes the current, hot-reloaded playbook set.
type PlaybookStore interface {
	Playbooks() []models.Playbook
	Reload() error
}

// Runner matches incoming Alerts against playbooks and executes their
// actions, writing one RunLogEntry per action to the run log.
type Runner struct {
	store         PlaybookStore
	drivers       map[models.ActionType]Driver
	runLog        *RunLogStore
	defaultAction time.Duration
}

// NewRunner wires store and runLog into a runnable Runner. defaultAction
// bounds an action with no declared timeout.
func NewRunner(store PlaybookStore, runLog *RunLogStore, defaultAction time.Duration) *Runner {
	if defaultAction <= 0 {
		defaultAction = 30 * time.Second
	}
	return &Runner{
		store:         store,
		drivers:       make(map[models.ActionType]Driver),
		runLog:        runLog,
		defaultAction: defaultAction,
	}
}

// RegisterDriver wires one action type's driver into the runner.
func (r *Runner) RegisterDriver(d Driver) {
	r.drivers[d.Type()] = d
}

// Process evaluates every enabled playbook's triggers against alert and
// runs the actions of every playbook that matches, returning every
// RunLogEntry produced (also durably appended to the run log).
func (r *Runner) Process(ctx context.Context, alert *models.Alert) ([]models.RunLogEntry, error) {
	fields, err := ruleeval.Fields(alert)
	if err != nil {
		return nil, err
	}

	var entries []models.RunLogEntry
	for _, playbook := range r.store.Playbooks() {
		if !playbook.Enabled {
			continue
		}
		if !ruleeval.EvalAll(playbook.Triggers, fields) {
			continue
		}
		entries = append(entries, r.runPlaybook(ctx, &playbook, alert, fields)...)
	}
	return entries, nil
}

func (r *Runner) runPlaybook(ctx context.Context, playbook *models.Playbook, alert *models.Alert, fields map[string]interface{}) []models.RunLogEntry {
	entries := make([]models.RunLogEntry, 0, len(playbook.Actions))
	for _, action := range playbook.Actions {
		entry := r.runAction(ctx, playbook, alert, fields, &action)
		entries = append(entries, entry)
		if entry.Status != models.RunStatusOK && action.FailStop {
			logging.Warn().Str("playbook_id", playbook.ID).Str("action", action.Name).
				Msg("fail_stop action failed, skipping remaining actions")
			break
		}
	}
	return entries
}

func (r *Runner) runAction(ctx context.Context, playbook *models.Playbook, alert *models.Alert, fields map[string]interface{}, action *models.PlaybookAction) models.RunLogEntry {
	entry := models.RunLogEntry{
		PlaybookID: playbook.ID,
		AlertID:    alert.ID,
		ActionName: action.Name,
		At:         time.Now().UTC(),
	}

	if !ruleeval.EvalAll(action.Conditions, fields) {
		entry.Status = models.RunStatusSkipped
		r.record(entry)
		return entry
	}

	start := time.Now()
	status, errMsg := r.dispatch(ctx, action, alert)
	entry.Status = status
	entry.Error = errMsg
	entry.Duration = time.Since(start)

	metrics.ResponseActionsExecuted.WithLabelValues(string(action.Type), string(status)).Inc()
	metrics.ResponseActionDuration.WithLabelValues(string(action.Type)).Observe(entry.Duration.Seconds())

	r.record(entry)
	return entry
}

func (r *Runner) dispatch(ctx context.Context, action *models.PlaybookAction, alert *models.Alert) (models.RunStatus, string) {
	driver, ok := r.drivers[action.Type]
	if !ok {
		return models.RunStatusError, "no driver registered for type " + string(action.Type)
	}

	params, err := renderParameters(action.Parameters, alert)
	if err != nil {
		return models.RunStatusError, err.Error()
	}

	timeout := action.Timeout
	if timeout <= 0 {
		timeout = r.defaultAction
	}
	actionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err = driver.Execute(actionCtx, params)
	switch {
	case err == nil:
		return models.RunStatusOK, ""
	case actionCtx.Err() != nil:
		return models.RunStatusTimeout, err.Error()
	default:
		return models.RunStatusError, err.Error()
	}
}

func (r *Runner) record(entry models.RunLogEntry) {
	if r.runLog == nil {
		return
	}
	if err := r.runLog.Append(entry); err != nil {
		logging.Error().Err(err).Str("playbook_id", entry.PlaybookID).Str("alert_id", entry.AlertID).
			Msg("failed to append playbook run log entry")
	}
}
