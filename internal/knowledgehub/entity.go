// Package knowledgehub implements the Knowledge Hub Hook (4.P): entity
// resolution (cached exact match -> alias table -> fuzzy match -> embedding
// match -> create new), mention/co-occurrence bookkeeping, topic
// assignment by centroid similarity, and causal-graph aggregation per
// story.
package knowledgehub

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"novasynth/internal/core"
	"novasynth/internal/vectorstore"
)

const (
	levenshteinThreshold = 0.85
	embeddingThreshold   = 0.90
)

// commonAliases is the static alias table: known alternate spellings or
// abbreviations mapped to a canonical name.
var commonAliases = map[string]string{
	"us":      "United States",
	"u.s.":    "United States",
	"eu":      "European Union",
	"un":      "United Nations",
	"uk":      "United Kingdom",
}

// Hub resolves entity mentions to canonical ids and keeps their mention
// and co-occurrence bookkeeping current.
type Hub struct {
	store vectorstore.Store

	mu    sync.Mutex
	cache map[string]string // exact mention text -> entity id, warms across calls
}

// New creates a Hub backed by store.
func New(store vectorstore.Store) *Hub {
	return &Hub{store: store, cache: make(map[string]string)}
}

// Resolve implements 4.P's resolution cascade for one entity mention of
// a given type ("person", "organization", "location"), with an
// embedding to fall back on when no textual match is found.
func (h *Hub) Resolve(ctx context.Context, mention, entityType string, embedding []float64, now time.Time) (core.Entity, error) {
	key := strings.ToLower(mention)

	h.mu.Lock()
	if id, ok := h.cache[key]; ok {
		h.mu.Unlock()
		return h.touch(ctx, id, now)
	}
	h.mu.Unlock()

	if canonical, ok := commonAliases[key]; ok {
		if entity, found, err := h.findByName(ctx, canonical, entityType); err != nil {
			return core.Entity{}, err
		} else if found {
			h.remember(key, entity.ID)
			return h.touch(ctx, entity.ID, now)
		}
		mention = canonical
	}

	candidates, err := h.candidatesOfType(ctx, entityType)
	if err != nil {
		return core.Entity{}, err
	}

	if entity, ok := fuzzyMatch(mention, candidates); ok {
		h.remember(key, entity.ID)
		return h.touch(ctx, entity.ID, now)
	}

	if len(embedding) > 0 {
		if entity, ok := embeddingMatch(embedding, candidates); ok {
			h.remember(key, entity.ID)
			return h.touch(ctx, entity.ID, now)
		}
	}

	entity := core.Entity{
		ID:            uuid.NewString(),
		CanonicalName: mention,
		Type:          entityType,
		MentionCount:  1,
		Embedding:     embedding,
		FirstSeen:     now,
		LastMentioned: now,
	}
	if err := h.upsert(ctx, entity); err != nil {
		return core.Entity{}, err
	}
	h.remember(key, entity.ID)
	return entity, nil
}

func (h *Hub) remember(key, id string) {
	h.mu.Lock()
	h.cache[key] = id
	h.mu.Unlock()
}

func (h *Hub) findByName(ctx context.Context, name, entityType string) (core.Entity, bool, error) {
	points, err := h.store.Scroll(ctx, vectorstore.CollectionEntities, vectorstore.Filter{
		Equals: map[string]any{"canonical_name": name, "type": entityType},
	}, 1, true, true)
	if err != nil || len(points) == 0 {
		return core.Entity{}, false, err
	}
	return entityFromPoint(points[0]), true, nil
}

func (h *Hub) candidatesOfType(ctx context.Context, entityType string) ([]core.Entity, error) {
	points, err := h.store.Scroll(ctx, vectorstore.CollectionEntities, vectorstore.Filter{
		Equals: map[string]any{"type": entityType},
	}, 0, true, true)
	if err != nil {
		return nil, err
	}
	entities := make([]core.Entity, 0, len(points))
	for _, p := range points {
		entities = append(entities, entityFromPoint(p))
	}
	return entities, nil
}

func fuzzyMatch(mention string, candidates []core.Entity) (core.Entity, bool) {
	lower := strings.ToLower(mention)
	for _, c := range candidates {
		if similarityRatio(lower, strings.ToLower(c.CanonicalName)) >= levenshteinThreshold {
			return c, true
		}
		for _, alias := range c.Aliases {
			if similarityRatio(lower, strings.ToLower(alias)) >= levenshteinThreshold {
				return c, true
			}
		}
	}
	return core.Entity{}, false
}

// similarityRatio converts Levenshtein edit distance into a 0..1
// similarity score normalized by the longer string's length.
func similarityRatio(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

func embeddingMatch(embedding []float64, candidates []core.Entity) (core.Entity, bool) {
	best := core.Entity{}
	bestScore := 0.0
	for _, c := range candidates {
		score := vectorstore.CosineSimilarity(embedding, c.Embedding)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore >= embeddingThreshold {
		return best, true
	}
	return core.Entity{}, false
}

// touch loads an entity, bumps its mention count and last-mentioned
// timestamp, and writes it back.
func (h *Hub) touch(ctx context.Context, id string, now time.Time) (core.Entity, error) {
	points, err := h.store.Retrieve(ctx, vectorstore.CollectionEntities, []string{id})
	if err != nil || len(points) == 0 {
		return core.Entity{}, err
	}
	entity := entityFromPoint(points[0])
	entity.MentionCount++
	entity.LastMentioned = now
	if err := h.upsert(ctx, entity); err != nil {
		return core.Entity{}, err
	}
	return entity, nil
}

// RecordCoOccurrence adds each other entity id to entity's co-occurrence
// list, deduplicated, and persists the update.
func (h *Hub) RecordCoOccurrence(ctx context.Context, entity core.Entity, others []string) error {
	seen := make(map[string]bool, len(entity.CoOccurrences))
	for _, id := range entity.CoOccurrences {
		seen[id] = true
	}
	for _, id := range others {
		if id == entity.ID || seen[id] {
			continue
		}
		seen[id] = true
		entity.CoOccurrences = append(entity.CoOccurrences, id)
	}
	return h.upsert(ctx, entity)
}

func (h *Hub) upsert(ctx context.Context, e core.Entity) error {
	return h.store.Upsert(ctx, vectorstore.CollectionEntities, e.ID, e.Embedding, map[string]any{
		"canonical_name": e.CanonicalName,
		"type":           e.Type,
		"aliases":        e.Aliases,
		"mention_count":  e.MentionCount,
		"co_occurrences": e.CoOccurrences,
		"first_seen":     e.FirstSeen.Unix(),
		"last_mentioned": e.LastMentioned.Unix(),
	})
}

func entityFromPoint(p vectorstore.Point) core.Entity {
	e := core.Entity{ID: p.ID, Embedding: p.Vector}
	if v, ok := p.Payload["canonical_name"].(string); ok {
		e.CanonicalName = v
	}
	if v, ok := p.Payload["type"].(string); ok {
		e.Type = v
	}
	if v, ok := p.Payload["mention_count"].(int); ok {
		e.MentionCount = v
	}
	if v, ok := p.Payload["aliases"].([]string); ok {
		e.Aliases = v
	}
	if v, ok := p.Payload["co_occurrences"].([]string); ok {
		e.CoOccurrences = v
	}
	if v, ok := p.Payload["first_seen"].(int64); ok {
		e.FirstSeen = time.Unix(v, 0).UTC()
	}
	if v, ok := p.Payload["last_mentioned"].(int64); ok {
		e.LastMentioned = time.Unix(v, 0).UTC()
	}
	return e
}
