// Package trigger implements the external Trigger interface (spec §6):
// start/stop/status/logs plus blacklist and source-health operator
// operations, sitting in front of internal/pipeline, internal/registry,
// internal/health and internal/discovery. It carries the operator-token
// presence check the spec asks for (§1 keeps the real authentication
// mechanism itself out of scope) and the three distinct error states
// (409 busy, 401 unauthorized, 503 token not configured) transport
// layers are expected to map onto status codes.
package trigger

import (
	"context"
	"errors"

	"novasynth/internal/broker"
	"novasynth/internal/discovery"
	"novasynth/internal/health"
	"novasynth/internal/pipeline"
	"novasynth/internal/registry"
)

// ErrTokenNotConfigured is returned by mutating calls when no operator
// token has been configured yet (maps to HTTP 503).
var ErrTokenNotConfigured = errors.New("trigger: operator token not configured")

// ErrUnauthorized is returned by mutating calls presenting a missing or
// wrong operator token (maps to HTTP 401).
var ErrUnauthorized = errors.New("trigger: missing or invalid operator token")

// Trigger is the single entry point query and admin tooling drive the
// pipeline through. Query operations (Status, Logs, HealthReport) are
// public; mutating operations (Start, Stop, Blacklist, ClearBlacklist,
// Discover) require the configured operator token.
type Trigger struct {
	pipeline      *pipeline.Pipeline
	registry      *registry.Registry
	health        *health.Store
	discovery     *discovery.Discoverer
	broker        *broker.Broker
	operatorToken string
}

// New creates a Trigger. operatorToken empty means mutating calls are
// rejected with ErrTokenNotConfigured until one is set via SetOperatorToken.
func New(p *pipeline.Pipeline, reg *registry.Registry, h *health.Store, d *discovery.Discoverer, b *broker.Broker, operatorToken string) *Trigger {
	return &Trigger{pipeline: p, registry: reg, health: h, discovery: d, broker: b, operatorToken: operatorToken}
}

// SetOperatorToken updates the token checked by mutating operations.
func (t *Trigger) SetOperatorToken(token string) {
	t.operatorToken = token
}

func (t *Trigger) authorize(token string) error {
	if t.operatorToken == "" {
		return ErrTokenNotConfigured
	}
	if token == "" || token != t.operatorToken {
		return ErrUnauthorized
	}
	return nil
}

// Start triggers one pipeline run. Returns lock.ErrPipelineBusy (409) if a
// run is already in flight, ErrUnauthorized/ErrTokenNotConfigured for a
// failed operator check.
func (t *Trigger) Start(token string, req pipeline.RunRequest) error {
	if err := t.authorize(token); err != nil {
		return err
	}
	return t.pipeline.Start(req)
}

// Stop cancels the in-flight run, if any.
func (t *Trigger) Stop(token string) error {
	if err := t.authorize(token); err != nil {
		return err
	}
	return t.pipeline.Stop()
}

// Status reports the current or last-finished run. Public: no token check.
func (t *Trigger) Status() pipeline.RunResult {
	return t.pipeline.Status()
}

// Logs returns a slice of the broker's retained ring buffer. Public.
func (t *Trigger) Logs(limit, offset int) []broker.Event {
	return t.pipeline.Logs(limit, offset)
}

// Blacklist adds domain to the blacklist with reason.
func (t *Trigger) Blacklist(ctx context.Context, token, domain, reason string) error {
	if err := t.authorize(token); err != nil {
		return err
	}
	return t.health.Blacklist(ctx, domain, reason)
}

// ClearBlacklist removes domain from the blacklist, or every blacklisted
// domain when domain is empty (spec §6: "blacklist.clear(domain?)").
func (t *Trigger) ClearBlacklist(ctx context.Context, token, domain string) error {
	if err := t.authorize(token); err != nil {
		return err
	}
	if domain != "" {
		return t.health.Unblacklist(ctx, domain)
	}
	blacklisted, err := t.health.Blacklisted(ctx)
	if err != nil {
		return err
	}
	for d := range blacklisted {
		if err := t.health.Unblacklist(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// HealthReport returns the categorized health buckets over every
// registered domain. Public: query operation.
func (t *Trigger) HealthReport(ctx context.Context) (health.HealthReport, error) {
	return t.health.Report(ctx, t.registry.Domains())
}

// Discover schedules auto-discovery (4.F) for blockedDomain, bypassing
// the scraper's own automatic trigger conditions (timeout/block/quiet
// runs) for an operator-initiated replacement search.
func (t *Trigger) Discover(ctx context.Context, token, blockedDomain, reason string) error {
	if err := t.authorize(token); err != nil {
		return err
	}
	if reason != "" {
		t.broker.Log(broker.LevelInfo, "operator requested discovery: "+reason, blockedDomain, nil)
	}
	t.discovery.Discover(ctx, blockedDomain)
	return nil
}
