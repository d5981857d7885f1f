// Package registry implements the Source Registry (4.A): a domain -> Source
// catalog, guarded by a readers-writer lock since writes only happen during
// auto-discovery (4.F) and at startup (5. Shared-resource policy).
package registry

import (
	"sort"
	"sync"

	"novasynth/internal/core"
)

// Filters narrows List's results.
type Filters struct {
	Category string
	Language string
	Tier     core.SourceTier // 0 means "any tier"
}

func (f Filters) matches(s core.Source) bool {
	if f.Category != "" && s.CategoryHint != f.Category {
		return false
	}
	if f.Language != "" && s.Language != f.Language {
		return false
	}
	if f.Tier != 0 && s.Tier != f.Tier {
		return false
	}
	return true
}

// Registry is the single source of truth consulted by the scraper
// fan-out (4.E). It never destroys a Source; removal is modeled as
// blacklisting in the health store (4.B), not deletion here.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]core.Source
}

// New creates a Registry seeded with the given static catalog.
func New(seed []core.Source) *Registry {
	r := &Registry{sources: make(map[string]core.Source, len(seed))}
	for _, s := range seed {
		r.sources[s.Domain] = s
	}
	return r
}

// List returns sources matching filters, sorted by domain for deterministic
// iteration order (the scraper fan-out doesn't rely on this order, but
// deterministic output makes tests reproducible).
func (r *Registry) List(filters Filters) []core.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Source, 0, len(r.sources))
	for _, s := range r.sources {
		if filters.matches(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

// Get returns the Source for domain, and whether it was found.
func (r *Registry) Get(domain string) (core.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[domain]
	return s, ok
}

// Add inserts or replaces a Source. Auto-discovered sources must be
// inserted with AutoDiscovered=true and Tier defaulted to TierStandard by
// the caller (4.A invariant: "tier defaults to 2 when unknown").
func (r *Registry) Add(s core.Source) {
	if s.Tier == 0 {
		s.Tier = core.TierStandard
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Domain] = s
}

// Remove deletes a domain from the catalog outright. This is distinct from
// blacklisting (internal/health): Remove is for operator cleanup of a
// registry entry that should never have existed, not the normal
// source-goes-bad path, which leaves the Source registered but blacklisted.
func (r *Registry) Remove(domain string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, domain)
}

// Domains returns every registered domain, independent of filters.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sources))
	for d := range r.sources {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
