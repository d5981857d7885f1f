package vectorstore

import (
	"context"
	"testing"
)

func TestMemoryUpsertQuery(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_ = store.Upsert(ctx, CollectionSyntheses, "s1", []float64{1, 0, 0}, map[string]any{"title": "a"})
	_ = store.Upsert(ctx, CollectionSyntheses, "s2", []float64{0, 1, 0}, map[string]any{"title": "b"})

	results, err := store.Query(ctx, CollectionSyntheses, []float64{1, 0, 0}, Filter{}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 || results[0].ID != "s1" {
		t.Fatalf("expected s1 ranked first, got %+v", results)
	}
}

func TestSetPayloadMerges(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_ = store.Upsert(ctx, CollectionArticles, "a1", nil, map[string]any{"url": "http://x"})
	_ = store.SetPayload(ctx, CollectionArticles, "a1", map[string]any{"used_in_synthesis_id": "syn1"})

	pts, err := store.Retrieve(ctx, CollectionArticles, []string{"a1"})
	if err != nil || len(pts) != 1 {
		t.Fatalf("Retrieve: %v %+v", err, pts)
	}
	if pts[0].Payload["used_in_synthesis_id"] != "syn1" {
		t.Fatalf("expected used_in_synthesis_id set, got %+v", pts[0].Payload)
	}
	if pts[0].Payload["url"] != "http://x" {
		t.Fatalf("expected url preserved, got %+v", pts[0].Payload)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if sim := CosineSimilarity([]float64{1, 0}, []float64{1, 0}); sim != 1 {
		t.Fatalf("expected identical vectors to have similarity 1, got %f", sim)
	}
	if sim := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); sim != 0 {
		t.Fatalf("expected orthogonal vectors to have similarity 0, got %f", sim)
	}
}
