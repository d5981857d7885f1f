// Package persister implements the Synthesis Persister (4.O): one upsert
// per synthesis (base first, then any accepted persona variant linked by
// base_synthesis_id), followed by a best-effort, non-fatal marking of
// each contributing source URL with the new synthesis id.
package persister

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"novasynth/internal/core"
	"novasynth/internal/logger"
	"novasynth/internal/vectorstore"
)

// Persister writes syntheses and their persona variants to the vector
// store and marks contributing articles as consumed.
type Persister struct {
	store vectorstore.Store
}

// New creates a Persister backed by store.
func New(store vectorstore.Store) *Persister {
	return &Persister{store: store}
}

// Persist upserts a base synthesis, reusing id if the continuity decider
// supplied one (update mode) or generating a fresh one otherwise. It then
// marks every contributing article's used_in_synthesis_id.
func (p *Persister) Persist(ctx context.Context, syn *core.Synthesis, reuseID string) error {
	if reuseID != "" {
		syn.ID = reuseID
	} else if syn.ID == "" {
		syn.ID = uuid.NewString()
	}

	if err := p.store.Upsert(ctx, vectorstore.CollectionSyntheses, syn.ID, syn.Embedding, payloadFromSynthesis(syn)); err != nil {
		return err
	}

	p.markSourcesUsed(ctx, syn)
	return nil
}

// PersistPersonaVariant upserts an accepted persona variant as a separate
// row pointing back at the base synthesis via BaseSynthesisID. The base
// synthesis must already have been persisted.
func (p *Persister) PersistPersonaVariant(ctx context.Context, variant *core.Synthesis, base *core.Synthesis) error {
	variant.BaseSynthesisID = base.ID
	variant.IsPersonaVersion = true
	if variant.ID == "" {
		variant.ID = uuid.NewString()
	}
	return p.store.Upsert(ctx, vectorstore.CollectionSyntheses, variant.ID, variant.Embedding, payloadFromSynthesis(variant))
}

func payloadFromSynthesis(s *core.Synthesis) map[string]any {
	sourceURLs := make([]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		sourceURLs = append(sourceURLs, src.URL)
	}
	return map[string]any{
		"title":              s.Title,
		"base_synthesis_id":  s.BaseSynthesisID,
		"cluster_id":         s.ClusterID,
		"story_id":           s.StoryID,
		"is_persona_version": s.IsPersonaVersion,
		"update_count":       s.UpdateCount,
		"created_at":         s.CreatedAt.Unix(),
		"first_seen":         s.FirstSeen.Unix(),
		"last_updated_at":    s.LastUpdatedAt.Unix(),
		"source_urls":        sourceURLs,
	}
}

// markSourcesUsed is the best-effort multi-strategy URL lookup: exact,
// lowercased-no-trailing-slash, URL-decoded, and path+domain match.
// Failures are logged at debug level and never roll back the synthesis.
func (p *Persister) markSourcesUsed(ctx context.Context, syn *core.Synthesis) {
	for _, src := range syn.Sources {
		if p.markOneSource(ctx, src.URL, syn.ID) {
			continue
		}
		logger.Get().Debug("persister: could not mark source as used", "url", src.URL, "synthesis_id", syn.ID)
	}
}

func (p *Persister) markOneSource(ctx context.Context, rawURL, synthesisID string) bool {
	for _, candidate := range urlCandidates(rawURL) {
		points, err := p.store.Scroll(ctx, vectorstore.CollectionArticles, vectorstore.Filter{
			Equals: map[string]any{"url": candidate},
		}, 1, true, false)
		if err != nil || len(points) == 0 {
			continue
		}
		if err := p.store.SetPayload(ctx, vectorstore.CollectionArticles, points[0].ID, map[string]any{
			"used_in_synthesis_id": synthesisID,
		}); err == nil {
			return true
		}
	}
	return false
}

// urlCandidates enumerates the normalization strategies markOneSource
// tries in order: exact, normalized (lowercase, no trailing slash),
// URL-decoded, and path+domain only (scheme-agnostic).
func urlCandidates(raw string) []string {
	candidates := []string{raw, core.NormalizedURL(raw)}

	if decoded, err := url.QueryUnescape(raw); err == nil && decoded != raw {
		candidates = append(candidates, decoded)
	}

	if parsed, err := url.Parse(raw); err == nil && parsed.Host != "" {
		pathMatch := strings.TrimSuffix(parsed.Host+parsed.Path, "/")
		candidates = append(candidates, pathMatch)
	}

	return candidates
}
