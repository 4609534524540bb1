// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package audit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/logging"
)

// Config holds configuration for the audit logger.
type Config struct {
	Enabled         bool          `koanf:"enabled"`
	RetentionDays   int           `koanf:"retention_days"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	BufferSize      int           `koanf:"buffer_size"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      1000,
	}
}

// Logger is the audit sink every auth/authz/control-plane decision
// writes through. Log is non-blocking: events are buffered onto a
// channel and a background goroutine persists them, so a slow or
// momentarily unavailable store never stalls the HTTP request path that
// produced the decision.
type Logger struct {
	config    *Config
	store     Store
	eventChan chan *Event
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger creates a new audit logger backed by store and starts its
// async writer goroutine.
func NewLogger(store Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Msg("failed to save audit event")
	}
}

// Log records an audit event, assigning an ID and timestamp if unset.
func (l *Logger) Log(event *Event) {
	if !l.config.Enabled {
		return
	}

	if event.ID == "" {
		event.ID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Msg("audit event buffer full, dropping event")
	}
}

// Close shuts down the logger gracefully, flushing any buffered events.
func (l *Logger) Close() error {
	close(l.stopChan)
	l.wg.Wait()
	return nil
}

// StartCleanupRoutine runs retention cleanup at the configured interval
// until ctx is canceled.
func (l *Logger) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(l.config.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -l.config.RetentionDays)
				count, err := l.store.Delete(ctx, cutoff)
				if err != nil {
					logging.Error().Err(err).Msg("audit cleanup error")
				} else if count > 0 {
					logging.Info().Int64("count", count).Msg("cleaned up expired audit events")
				}
			}
		}
	}()
}

// Query retrieves events matching filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of events matching filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

func generateEventID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}

// LogAuthSuccess logs a successful authentication.
func (l *Logger) LogAuthSuccess(ctx context.Context, actor Actor, source Source) {
	l.Log(&Event{
		Type:        EventTypeAuthSuccess,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      "authenticate",
		Description: "user authenticated successfully",
	})
}

// LogAuthFailure logs a failed authentication attempt.
func (l *Logger) LogAuthFailure(ctx context.Context, username string, source Source, reason string) {
	l.Log(&Event{
		Type:        EventTypeAuthFailure,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		Actor:       Actor{Type: "user", Name: username},
		Source:      source,
		Action:      "authenticate",
		Description: "authentication failed: " + reason,
		Metadata:    mustJSON(map[string]string{"reason": reason}),
	})
}

// LogAuthLockout logs an account lockout triggered by too many failed
// login attempts (internal/auth.LoginLockout).
func (l *Logger) LogAuthLockout(ctx context.Context, username string, source Source, window time.Duration, attempts int) {
	l.Log(&Event{
		Type:        EventTypeAuthLockout,
		Severity:    SeverityCritical,
		Outcome:     OutcomeSuccess,
		Actor:       Actor{Type: "user", Name: username},
		Source:      source,
		Action:      "lockout",
		Description: "account locked after repeated failed login attempts",
		Metadata: mustJSON(map[string]interface{}{
			"window_seconds": window.Seconds(),
			"attempts":       attempts,
		}),
	})
}

// LogLogout logs a logout event.
func (l *Logger) LogLogout(ctx context.Context, actor Actor, source Source) {
	l.Log(&Event{
		Type:        EventTypeLogout,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      "logout",
		Description: "user logged out",
	})
}

// LogAuthzDenied logs an authorization denial: a bearer token whose
// scopes didn't cover the requested resource/action.
func (l *Logger) LogAuthzDenied(ctx context.Context, actor Actor, source Source, resource, action string) {
	l.Log(&Event{
		Type:        EventTypeAuthzDenied,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		Actor:       actor,
		Source:      source,
		Action:      "authorize",
		Target:      &Target{ID: resource, Type: "resource"},
		Description: "authorization denied for " + action + " on " + resource,
		Metadata:    mustJSON(map[string]string{"resource": resource, "requested_action": action}),
	})
}

// LogRuleReload logs a detection rule-store reload, whether triggered by
// a file-watch signal or the POST /rules/reload control endpoint.
func (l *Logger) LogRuleReload(ctx context.Context, actor Actor, ruleCount int, err error) {
	outcome, severity, desc := OutcomeSuccess, SeverityInfo, "detection rule store reloaded"
	if err != nil {
		outcome, severity, desc = OutcomeFailure, SeverityError, "detection rule store reload failed: "+err.Error()
	}
	l.Log(&Event{
		Type:        EventTypeRuleReloaded,
		Severity:    severity,
		Outcome:     outcome,
		Actor:       actor,
		Action:      "reload",
		Target:      &Target{Type: "rule_store"},
		Description: desc,
		Metadata:    mustJSON(map[string]int{"rule_count": ruleCount}),
	})
}

// LogAdminAction logs a generic administrative action not covered by a
// more specific helper above.
func (l *Logger) LogAdminAction(ctx context.Context, actor Actor, source Source, action, description string, metadata map[string]interface{}) {
	l.Log(&Event{
		Type:        EventTypeAdminAction,
		Severity:    SeverityWarning,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      action,
		Description: description,
		Metadata:    mustJSON(metadata),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// SourceFromRequest builds a Source from an inbound HTTP request,
// preferring X-Forwarded-For/X-Real-IP over RemoteAddr behind a proxy.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip = xff
	} else if xri := r.Header.Get("X-Real-IP"); xri != "" {
		ip = xri
	}
	return Source{IPAddress: ip, UserAgent: r.UserAgent()}
}

// ActorFromUser builds an Actor from an authenticated user's identity.
func ActorFromUser(id, name string, roles []string, authMethod string) Actor {
	return Actor{ID: id, Type: "user", Name: name, Roles: roles, AuthMethod: authMethod}
}

// SystemActor returns an Actor representing WardenLog itself, used for
// events with no human or external operator behind them.
func SystemActor() Actor {
	return Actor{ID: "system", Type: "system", Name: "wardenlog"}
}
