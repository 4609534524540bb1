// WardenLog - SIEM Ingest/Detect/Respond Pipeline
// Copyright 2026 WardenLog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenlog/wardenlog

package collector

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/wardenlog/wardenlog/internal/apierr"
	"github.com/wardenlog/wardenlog/internal/audit"
	"github.com/wardenlog/wardenlog/internal/auth"
	"github.com/wardenlog/wardenlog/internal/authz"
	"github.com/wardenlog/wardenlog/internal/eventprocessor"
	"github.com/wardenlog/wardenlog/internal/logging"
	"github.com/wardenlog/wardenlog/internal/models"
	ws "github.com/wardenlog/wardenlog/internal/websocket"
)

// RuleReloader is the subset of detection.RuleStore the rules-reload
// control endpoint depends on.
type RuleReloader interface {
	Rules() []models.Rule
	Reload() error
}

// PlaybookReloader is the subset of response.PlaybookStore the
// playbooks-reload control endpoint depends on.
type PlaybookReloader interface {
	Playbooks() []models.Playbook
	Reload() error
}

// DLQLister is the subset of eventprocessor's DLQ handler the dead-letter
// inspection endpoint depends on.
type DLQLister interface {
	ListEntries() []*eventprocessor.DLQEntry
}

// RunLogReader is the subset of response.RunLogStore the playbook-run-log
// query endpoint depends on.
type RunLogReader interface {
	Recent(limit int) ([]models.RunLogEntry, error)
}

// AdminSurface bundles the optional control-plane collaborators: the live
// alert stream, dead-letter inspection, rule and playbook hot reload, and
// the playbook run log. Every field is optional; an unset collaborator's
// route responds 503 rather than panicking, so a deployment can enable
// these incrementally.
type AdminSurface struct {
	Hub       *ws.Hub
	Rules     RuleReloader
	Playbooks PlaybookReloader
	DLQ       DLQLister
	RunLog    RunLogReader
	Enforcer  *authz.Enforcer
	AuthzLog  *authz.AuditLog
}

// SetAdminSurface attaches the supplemented control-plane collaborators.
// Routes for an unconfigured AdminSurface (the zero value) still mount but
// answer 503, matching handleHealth's "degraded, not down" posture.
func (c *Collector) SetAdminSurface(a AdminSurface) {
	c.admin = a
}

// requireScopes builds scope-check middleware for an arbitrary scope set,
// unlike requireScope which always checks c.cfg.RequiredScope.
func (c *Collector) requireScopes(scopes ...string) func(http.Handler) http.Handler {
	return auth.RequireScopes(c.tokens, c.cfg.TrustedProxies, c.auditDeny, scopes...)
}

// requirePermission layers a Casbin object/action check on top of the
// bearer-token scopes already verified by requireScopes, for the narrower
// set of control-plane actions a bare scope string can't express.
func (c *Collector) requirePermission(obj, act string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c.admin.Enforcer == nil {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				apierr.Upstream("authorization enforcer not configured").Write(w)
			})
		}
		return authz.RequirePermission(c.admin.Enforcer, c.admin.AuthzLog, obj, act)(next)
	}
}

// handleWebSocket upgrades GET /ws to a live alert stream pushed to
// connected dashboards as alerts are emitted.
func (c *Collector) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if c.admin.Hub == nil {
		apierr.Upstream("live alert stream not configured").Write(w)
		return
	}
	if err := ws.ServeWS(c.admin.Hub, w, r); err != nil {
		logging.CtxErr(r.Context(), err).Msg("websocket upgrade failed")
	}
}

// handleListDLQ reports GET /dlq, the dead-letter topic inspection surface.
func (c *Collector) handleListDLQ(w http.ResponseWriter, r *http.Request) {
	if c.admin.DLQ == nil {
		apierr.Upstream("dead-letter queue not configured").Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Entries []*eventprocessor.DLQEntry `json:"entries"`
	}{Entries: c.admin.DLQ.ListEntries()})
}

// handleReloadRules serves POST /rules/reload, re-reading the rule store
// outside of its file-watch path.
func (c *Collector) handleReloadRules(w http.ResponseWriter, r *http.Request) {
	if c.admin.Rules == nil {
		apierr.Upstream("rule store not configured").Write(w)
		return
	}
	err := c.admin.Rules.Reload()
	if c.audit != nil {
		actor := c.requestActor(r)
		c.audit.LogRuleReload(r.Context(), actor, len(c.admin.Rules.Rules()), err)
	}
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("rule store reload failed")
		apierr.Internal("rule reload failed", logging.CorrelationIDFromContext(r.Context())).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
		Rules  int    `json:"rules"`
	}{Status: "success", Rules: len(c.admin.Rules.Rules())})
}

// handleReloadPlaybooks serves POST /playbooks/reload, the playbook
// counterpart to handleReloadRules.
func (c *Collector) handleReloadPlaybooks(w http.ResponseWriter, r *http.Request) {
	if c.admin.Playbooks == nil {
		apierr.Upstream("playbook store not configured").Write(w)
		return
	}
	err := c.admin.Playbooks.Reload()
	if c.audit != nil {
		actor := c.requestActor(r)
		c.audit.LogAdminAction(r.Context(), actor, audit.SourceFromRequest(r), "playbooks.reload",
			"playbook store reloaded", map[string]interface{}{"playbooks": len(c.admin.Playbooks.Playbooks()), "error": errString(err)})
	}
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("playbook store reload failed")
		apierr.Internal("playbook reload failed", logging.CorrelationIDFromContext(r.Context())).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Status    string `json:"status"`
		Playbooks int    `json:"playbooks"`
	}{Status: "success", Playbooks: len(c.admin.Playbooks.Playbooks())})
}

// handlePlaybookRuns serves GET /playbooks/runs, read access to the
// append-only playbook run log.
func (c *Collector) handlePlaybookRuns(w http.ResponseWriter, r *http.Request) {
	if c.admin.RunLog == nil {
		apierr.Upstream("playbook run log not configured").Write(w)
		return
	}
	limit := 100
	entries, err := c.admin.RunLog.Recent(limit)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("playbook run log query failed")
		apierr.Internal("run log query failed", logging.CorrelationIDFromContext(r.Context())).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Entries []models.RunLogEntry `json:"entries"`
	}{Entries: entries})
}

// handleAuditQuery serves GET /audit, read access to the persisted audit
// trail for the scopes/actions recorded by requestActor and the rest of
// the Collector's audit.Logger.LogXxx calls.
func (c *Collector) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	if c.audit == nil {
		apierr.Upstream("audit trail not configured").Write(w)
		return
	}
	filter := audit.DefaultQueryFilter()
	if actorID := r.URL.Query().Get("actor_id"); actorID != "" {
		filter.ActorID = actorID
	}
	events, err := c.audit.Query(r.Context(), filter)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("audit query failed")
		apierr.Internal("audit query failed", logging.CorrelationIDFromContext(r.Context())).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Events []audit.Event `json:"events"`
	}{Events: events})
}

// requestActor builds an audit Actor from the caller's verified claims, if
// any are present on the request context.
func (c *Collector) requestActor(r *http.Request) audit.Actor {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return audit.ActorFromUser(claims.Username, claims.Username, claims.Scopes, "bearer")
	}
	return audit.SystemActor()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
