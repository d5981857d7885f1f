// Package continuity implements the Continuity Decider (4.K): decides,
// per cluster and before synthesis generation, whether a cluster is a
// continuation of a recent base synthesis (update mode), a pure
// duplicate (skip), or genuinely new.
package continuity

import (
	"context"
	"time"

	"novasynth/internal/core"
	"novasynth/internal/vectorstore"
)

const (
	// URLJaccardThreshold is step 1's overlap threshold.
	URLJaccardThreshold = 0.7
	// EmbeddingSimilarityThreshold is step 2's cosine threshold.
	EmbeddingSimilarityThreshold = 0.92
	// RecentWindow bounds which base syntheses are considered candidates.
	RecentWindow = 24 * time.Hour
)

// Mode is the decider's outcome.
type Mode string

const (
	ModeNew    Mode = "new"
	ModeUpdate Mode = "update"
	ModeSkip   Mode = "skip"
)

// Decision is the per-cluster outcome of the continuity check.
type Decision struct {
	Mode             Mode
	TargetSynthesis  *core.Synthesis // set when Mode == ModeUpdate
	UpdateNotice     string
}

// Decider runs the 4.K algorithm against recently-created base
// syntheses (persona variants are never candidates).
type Decider struct {
	store vectorstore.Store
}

func New(store vectorstore.Store) *Decider {
	return &Decider{store: store}
}

// Decide runs steps 1-3 for a single cluster.
func (d *Decider) Decide(ctx context.Context, cluster core.Cluster, now time.Time) (Decision, error) {
	candidates, err := d.recentBaseSyntheses(ctx, now)
	if err != nil {
		return Decision{}, err
	}

	clusterURLs := clusterURLSet(cluster)

	// Step 1: URL overlap.
	for i := range candidates {
		candidate := &candidates[i]
		overlap := jaccard(clusterURLs, candidate.URLSet())
		if overlap >= URLJaccardThreshold {
			if hasNewURLs(clusterURLs, candidate.URLSet()) {
				return updateDecision(candidate, now), nil
			}
			return Decision{Mode: ModeSkip}, nil
		}
	}

	// Step 2: embedding similarity, only reached if step 1 didn't classify.
	clusterVector := vectorstore.MeanPool(clusterEmbeddings(cluster))
	if clusterVector != nil {
		for i := range candidates {
			candidate := &candidates[i]
			if len(candidate.Embedding) == 0 {
				continue
			}
			sim := vectorstore.CosineSimilarity(clusterVector, candidate.Embedding)
			if sim >= EmbeddingSimilarityThreshold {
				if hasNewURLs(clusterURLs, candidate.URLSet()) {
					return updateDecision(candidate, now), nil
				}
				return Decision{Mode: ModeSkip}, nil
			}
		}
	}

	// Step 3: new mode.
	return Decision{Mode: ModeNew}, nil
}

func updateDecision(candidate *core.Synthesis, now time.Time) Decision {
	return Decision{
		Mode:            ModeUpdate,
		TargetSynthesis: candidate,
		UpdateNotice:    "Updated with new developments as of " + now.UTC().Format("2006-01-02 15:04 MST"),
	}
}

func (d *Decider) recentBaseSyntheses(ctx context.Context, now time.Time) ([]core.Synthesis, error) {
	points, err := d.store.Scroll(ctx, vectorstore.CollectionSyntheses, vectorstore.Filter{
		CreatedAfter: now.Add(-RecentWindow).Unix(),
	}, 0, true, true)
	if err != nil {
		return nil, err
	}

	var out []core.Synthesis
	for _, p := range points {
		if isPersonaVariant, _ := p.Payload["is_persona_version"].(bool); isPersonaVariant {
			continue
		}
		s := core.Synthesis{ID: p.ID, Embedding: p.Vector}
		if urls, ok := p.Payload["source_urls"].([]string); ok {
			for _, u := range urls {
				s.Sources = append(s.Sources, core.SourceRef{URL: u})
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func clusterURLSet(cluster core.Cluster) map[string]struct{} {
	set := make(map[string]struct{}, len(cluster.Articles))
	for _, a := range cluster.Articles {
		set[core.NormalizedURL(a.URL)] = struct{}{}
	}
	return set
}

func clusterEmbeddings(cluster core.Cluster) [][]float64 {
	var vectors [][]float64
	for _, a := range cluster.Articles {
		if len(a.Embedding) > 0 {
			vectors = append(vectors, a.Embedding)
		}
	}
	return vectors
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func hasNewURLs(cluster, candidate map[string]struct{}) bool {
	for k := range cluster {
		if _, ok := candidate[k]; !ok {
			return true
		}
	}
	return false
}
