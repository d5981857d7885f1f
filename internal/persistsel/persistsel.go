// Package persistsel implements the Persistence Selector (4.J): scores
// candidate past syntheses and returns the bounded set worth carrying
// into clustering as continuity context.
package persistsel

import (
	"context"
	"sort"
	"time"

	"novasynth/internal/core"
	"novasynth/internal/vectorstore"
)

const (
	// RecentWindow is the unconditional-inclusion window.
	RecentWindow = 3 * 24 * time.Hour
	// RecentUpdateBonus is the score bonus for syntheses updated in
	// the last 3 days.
	RecentUpdateBonus = 5.0
	// LongRunningBonus is the score bonus for stories spanning more
	// than 7 days.
	LongRunningBonus = 3.0
	// MinScoreForOlder is the inclusion threshold for syntheses older
	// than RecentWindow.
	MinScoreForOlder = 3.0
	// MaxSelected caps the total number of syntheses returned.
	MaxSelected = 150
)

// Score implements the 4.J scoring formula.
func Score(s core.Synthesis, now time.Time) float64 {
	score := float64(s.UpdateCount) * 2
	if now.Sub(s.LastUpdatedAt) <= RecentWindow {
		score += RecentUpdateBonus
	}
	if s.LastUpdatedAt.Sub(s.FirstSeen) > 7*24*time.Hour {
		score += LongRunningBonus
	}
	return score
}

// Selector retrieves candidate syntheses from the vector store and
// applies the 4.J selection rule.
type Selector struct {
	store vectorstore.Store
}

func New(store vectorstore.Store) *Selector {
	return &Selector{store: store}
}

// Select scans the syntheses collection and returns the syntheses (with
// their stored vectors) worth passing into clustering as continuity
// context, capped at MaxSelected and sorted by score descending.
func (sel *Selector) Select(ctx context.Context, now time.Time) ([]core.Synthesis, error) {
	points, err := sel.store.Scroll(ctx, vectorstore.CollectionSyntheses, vectorstore.Filter{}, 0, true, true)
	if err != nil {
		return nil, err
	}

	type scored struct {
		synthesis core.Synthesis
		score     float64
	}
	var candidates []scored

	for _, p := range points {
		s, ok := synthesisFromPayload(p)
		if !ok {
			continue
		}
		s.Embedding = p.Vector

		if now.Sub(s.CreatedAt) <= RecentWindow {
			candidates = append(candidates, scored{s, Score(s, now)})
			continue
		}
		score := Score(s, now)
		if score >= MinScoreForOlder {
			candidates = append(candidates, scored{s, score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > MaxSelected {
		candidates = candidates[:MaxSelected]
	}

	out := make([]core.Synthesis, len(candidates))
	for i, c := range candidates {
		out[i] = c.synthesis
	}
	return out, nil
}

// synthesisFromPayload reconstructs the scoring-relevant fields of a
// Synthesis from a vector-store payload. The persister (4.O) is
// responsible for writing these same keys.
func synthesisFromPayload(p vectorstore.Point) (core.Synthesis, bool) {
	s := core.Synthesis{ID: p.ID}

	if v, ok := p.Payload["update_count"].(int); ok {
		s.UpdateCount = v
	}
	if v, ok := p.Payload["created_at"].(int64); ok {
		s.CreatedAt = time.Unix(v, 0).UTC()
	}
	if v, ok := p.Payload["first_seen"].(int64); ok {
		s.FirstSeen = time.Unix(v, 0).UTC()
	}
	if v, ok := p.Payload["last_updated_at"].(int64); ok {
		s.LastUpdatedAt = time.Unix(v, 0).UTC()
	}
	if v, ok := p.Payload["title"].(string); ok {
		s.Title = v
	}
	if v, ok := p.Payload["is_persona_version"].(bool); ok && v {
		return core.Synthesis{}, false
	}
	return s, true
}
