// Package health implements the Source Health Store (4.B): a primary fast
// key-value layer mirrored to a JSON disk snapshot at most every 60s and on
// clean shutdown. Reads never block on the snapshot; on startup the primary
// wins when reachable, the snapshot is the fallback.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"novasynth/internal/core"
	"novasynth/internal/kv"
	"novasynth/internal/logger"
)

const (
	keyPrefix    = "sources:health:"
	blacklistSet = "sources:blacklist"
	discoveredSet = "sources:discovered"
)

// Snapshot is the on-disk persistence layout described in 6. External
// interfaces: additive fields only, readers tolerate unknown keys.
type Snapshot struct {
	LastUpdated time.Time                      `json:"last_updated"`
	Sources     map[string]core.SourceHealth   `json:"sources"`
	Blacklist   []string                       `json:"blacklist"`
}

// Store is the Source Health Store. It serializes writes through a single
// mutex (the "actor" described in 9. Design notes) so readers may return
// slightly stale data but writes are never lost to a race.
type Store struct {
	mu           sync.Mutex
	kv           kv.Store
	snapshotPath string
	log          *slog.Logger

	lastSnapshot time.Time
	snapMu       sync.Mutex
}

// NewStore creates a Store backed by kvStore, snapshotting to snapshotPath.
func NewStore(kvStore kv.Store, snapshotPath string) *Store {
	return &Store{kv: kvStore, snapshotPath: snapshotPath, log: logger.Get()}
}

// Load populates in-memory state on startup: the primary store wins when
// reachable, falling back to the disk snapshot otherwise. Since Store reads
// go straight through kv.Store, Load's job is to repopulate kv from the
// snapshot only when the primary itself is empty/unreachable.
func (s *Store) Load(ctx context.Context) error {
	if err := s.kv.Ping(ctx); err == nil {
		// Primary reachable: nothing to do, it is the source of truth.
		return nil
	}
	s.log.Warn("health store: primary unreachable at startup, loading snapshot")
	snap, err := s.readSnapshot()
	if err != nil {
		return fmt.Errorf("health store: snapshot fallback failed: %w", err)
	}
	for domain, h := range snap.Sources {
		raw, _ := json.Marshal(h)
		_ = s.kv.Set(ctx, keyPrefix+domain, string(raw), 0)
	}
	for _, d := range snap.Blacklist {
		_ = s.kv.SAdd(ctx, blacklistSet, d)
	}
	return nil
}

func (s *Store) readSnapshot() (Snapshot, error) {
	raw, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{Sources: map[string]core.SourceHealth{}}, nil
		}
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, err
	}
	if snap.Sources == nil {
		snap.Sources = map[string]core.SourceHealth{}
	}
	return snap, nil
}

// Get returns the current health record for domain, defaulting to an
// "active" record with zero counters when unknown.
func (s *Store) Get(ctx context.Context, domain string) (core.SourceHealth, error) {
	raw, err := s.kv.Get(ctx, keyPrefix+domain)
	if err != nil {
		if err == kv.ErrNotFound {
			return core.SourceHealth{Domain: domain, Status: core.HealthActive}, nil
		}
		return core.SourceHealth{}, err
	}
	var h core.SourceHealth
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return core.SourceHealth{}, err
	}
	return h, nil
}

func (s *Store) put(ctx context.Context, h core.SourceHealth) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, keyPrefix+h.Domain, string(raw), 0)
}

// transition applies the status-transition rules from 3. Data model.
func transition(h core.SourceHealth, now time.Time) core.SourceHealth {
	if h.Status == core.HealthBlacklisted {
		return h // only operator/hard-block path changes this, handled elsewhere
	}
	rate := h.SuccessRate()
	switch h.Status {
	case core.HealthActive:
		if rate < 0.5 && h.Total >= 3 {
			h.Status = core.HealthDegraded
		}
	case core.HealthDegraded:
		if h.Rolling7dFail >= 5 && h.Rolling7dSucc == 0 {
			h.Status = core.HealthBlocked
		} else if rate >= 0.7 {
			h.Status = core.HealthActive
		}
	}
	return h
}

// RecordSuccess increments success counters and re-evaluates status.
func (s *Store) RecordSuccess(ctx context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.Get(ctx, domain)
	if err != nil {
		return err
	}
	h.Domain = domain
	h.Total++
	h.Successful++
	h.Rolling7dSucc++
	h.LastSuccess = time.Now().UTC()
	h.ConsecutiveEmpty = 0
	h = transition(h, time.Now().UTC())
	return s.put(ctx, h)
}

// RecordFailure increments failure counters, records errMsg, and
// re-evaluates status.
func (s *Store) RecordFailure(ctx context.Context, domain, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.Get(ctx, domain)
	if err != nil {
		return err
	}
	h.Domain = domain
	h.Total++
	h.Failed++
	h.Rolling7dFail++
	h.LastFailure = time.Now().UTC()
	h.LastError = errMsg
	h = transition(h, time.Now().UTC())
	return s.put(ctx, h)
}

// RecordEmptyRun increments the consecutive-empty-run counter used by the
// scraper fan-out to decide when to schedule auto-discovery (4.E).
func (s *Store) RecordEmptyRun(ctx context.Context, domain string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.Get(ctx, domain)
	if err != nil {
		return 0, err
	}
	h.Domain = domain
	h.ConsecutiveEmpty++
	if err := s.put(ctx, h); err != nil {
		return 0, err
	}
	return h.ConsecutiveEmpty, nil
}

// Blacklist marks domain blacklisted with reason, only reachable by
// operator action or the repeated-hard-block path in the scraper (4.E/4.C).
func (s *Store) Blacklist(ctx context.Context, domain, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.Get(ctx, domain)
	if err != nil {
		return err
	}
	h.Domain = domain
	h.Status = core.HealthBlacklisted
	h.LastError = reason
	if err := s.put(ctx, h); err != nil {
		return err
	}
	return s.kv.SAdd(ctx, blacklistSet, domain)
}

// Unblacklist clears the blacklist status, resetting to active.
func (s *Store) Unblacklist(ctx context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.Get(ctx, domain)
	if err != nil {
		return err
	}
	h.Status = core.HealthActive
	h.Failed = 0
	h.Rolling7dFail = 0
	if err := s.put(ctx, h); err != nil {
		return err
	}
	return s.kv.SRem(ctx, blacklistSet, domain)
}

// Blacklisted returns the current blacklist set.
func (s *Store) Blacklisted(ctx context.Context) (map[string]struct{}, error) {
	members, err := s.kv.SMembers(ctx, blacklistSet)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(members))
	for _, m := range members {
		out[m] = struct{}{}
	}
	return out, nil
}

// SaveDiscovered persists a freshly auto-discovered source's health record
// (status=discovered), recording who discovered it and what it replaces.
func (s *Store) SaveDiscovered(ctx context.Context, domain, discoveredBy, replaces string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := core.SourceHealth{
		Domain:         domain,
		Status:         core.HealthDiscovered,
		DiscoveredBy:   discoveredBy,
		ReplacesDomain: replaces,
	}
	if err := s.put(ctx, h); err != nil {
		return err
	}
	return s.kv.SAdd(ctx, discoveredSet, domain)
}

// DiscoveredCount returns how many sources have been auto-discovered,
// enforced by 4.F's global cap of 10.
func (s *Store) DiscoveredCount(ctx context.Context) (int, error) {
	members, err := s.kv.SMembers(ctx, discoveredSet)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

// HealthReport buckets every known domain by status, the shape operator
// tooling consumes (6. External interfaces: sources.health_report()).
type HealthReport struct {
	Active      []core.SourceHealth `json:"active"`
	Degraded    []core.SourceHealth `json:"degraded"`
	Blocked     []core.SourceHealth `json:"blocked"`
	Blacklisted []core.SourceHealth `json:"blacklisted"`
	Discovered  []core.SourceHealth `json:"discovered"`
}

// Report builds a HealthReport over the given domains (typically the full
// registry catalog).
func (s *Store) Report(ctx context.Context, domains []string) (HealthReport, error) {
	var report HealthReport
	for _, d := range domains {
		h, err := s.Get(ctx, d)
		if err != nil {
			continue
		}
		switch h.Status {
		case core.HealthActive:
			report.Active = append(report.Active, h)
		case core.HealthDegraded:
			report.Degraded = append(report.Degraded, h)
		case core.HealthBlocked:
			report.Blocked = append(report.Blocked, h)
		case core.HealthBlacklisted:
			report.Blacklisted = append(report.Blacklisted, h)
		case core.HealthDiscovered:
			report.Discovered = append(report.Discovered, h)
		}
	}
	return report, nil
}

// MaybeSnapshot writes the JSON snapshot if at least 60s have passed since
// the last write (4.B: "mirrored to a disk snapshot at least every 60s").
func (s *Store) MaybeSnapshot(ctx context.Context, domains []string) error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	if time.Since(s.lastSnapshot) < 60*time.Second {
		return nil
	}
	return s.writeSnapshot(ctx, domains)
}

// Shutdown writes a final unconditional snapshot, matching "mirrored ...
// on clean shutdown".
func (s *Store) Shutdown(ctx context.Context, domains []string) error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	return s.writeSnapshot(ctx, domains)
}

func (s *Store) writeSnapshot(ctx context.Context, domains []string) error {
	if s.snapshotPath == "" {
		return nil
	}
	snap := Snapshot{LastUpdated: time.Now().UTC(), Sources: make(map[string]core.SourceHealth, len(domains))}
	for _, d := range domains {
		h, err := s.Get(ctx, d)
		if err != nil {
			continue
		}
		snap.Sources[d] = h
	}
	bl, err := s.Blacklisted(ctx)
	if err == nil {
		for d := range bl {
			snap.Blacklist = append(snap.Blacklist, d)
		}
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.snapshotPath, raw, 0o644); err != nil {
		s.log.Warn("health store: snapshot write failed", "error", err)
		return err
	}
	s.lastSnapshot = time.Now()
	return nil
}
