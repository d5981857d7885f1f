package knowledgehub

import (
	"context"
	"time"

	"github.com/google/uuid"

	"novasynth/internal/core"
	"novasynth/internal/vectorstore"
)

const topicAssignmentThreshold = 0.70

// AssignTopic assigns a synthesis to the closest existing topic when its
// embedding's cosine similarity to that topic's centroid is >= 0.70.
// When no topic qualifies, it returns ok=false: the synthesis is left
// unassigned and picked up by the next periodic DetectTopics run.
func (h *Hub) AssignTopic(ctx context.Context, embedding []float64, now time.Time) (core.Topic, bool, error) {
	points, err := h.store.Scroll(ctx, vectorstore.CollectionTopics, vectorstore.Filter{}, 0, true, true)
	if err != nil {
		return core.Topic{}, false, err
	}

	best := core.Topic{}
	bestScore := 0.0
	for _, p := range points {
		score := vectorstore.CosineSimilarity(embedding, p.Vector)
		if score > bestScore {
			bestScore = score
			best = topicFromPoint(p)
		}
	}
	if bestScore < topicAssignmentThreshold {
		return core.Topic{}, false, nil
	}

	best.MemberCount++
	best.UpdatedAt = now
	if err := h.upsertTopic(ctx, best); err != nil {
		return core.Topic{}, false, err
	}
	return best, true, nil
}

// DetectTopics is the periodic fallback for syntheses that AssignTopic
// left unassigned: it clusters their embeddings (via the caller-supplied
// grouping, since clustering itself lives in internal/clustering) and
// creates a new topic per group whose members have no existing match.
func (h *Hub) DetectTopics(ctx context.Context, label string, centroid []float64, memberCount int, now time.Time) (core.Topic, error) {
	topic := core.Topic{
		ID:          uuid.NewString(),
		Label:       label,
		Centroid:    centroid,
		MemberCount: memberCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.upsertTopic(ctx, topic); err != nil {
		return core.Topic{}, err
	}
	return topic, nil
}

func (h *Hub) upsertTopic(ctx context.Context, t core.Topic) error {
	return h.store.Upsert(ctx, vectorstore.CollectionTopics, t.ID, t.Centroid, map[string]any{
		"label":        t.Label,
		"member_count": t.MemberCount,
		"created_at":   t.CreatedAt.Unix(),
		"updated_at":   t.UpdatedAt.Unix(),
	})
}

func topicFromPoint(p vectorstore.Point) core.Topic {
	t := core.Topic{ID: p.ID, Centroid: p.Vector}
	if v, ok := p.Payload["label"].(string); ok {
		t.Label = v
	}
	if v, ok := p.Payload["member_count"].(int); ok {
		t.MemberCount = v
	}
	if v, ok := p.Payload["created_at"].(int64); ok {
		t.CreatedAt = time.Unix(v, 0).UTC()
	}
	if v, ok := p.Payload["updated_at"].(int64); ok {
		t.UpdatedAt = time.Unix(v, 0).UTC()
	}
	return t
}
