package persistsel

import (
	"context"
	"testing"
	"time"

	"novasynth/internal/vectorstore"
)

func TestSelectIncludesRecentUnconditionally(t *testing.T) {
	store := vectorstore.NewMemory()
	now := time.Now()

	_ = store.Upsert(context.Background(), vectorstore.CollectionSyntheses, "recent", []float64{1, 0}, map[string]any{
		"created_at": now.Add(-time.Hour).Unix(), "first_seen": now.Add(-time.Hour).Unix(), "last_updated_at": now.Add(-time.Hour).Unix(), "update_count": 0,
	})
	_ = store.Upsert(context.Background(), vectorstore.CollectionSyntheses, "old-low-score", []float64{0, 1}, map[string]any{
		"created_at": now.Add(-30 * 24 * time.Hour).Unix(), "first_seen": now.Add(-30 * 24 * time.Hour).Unix(), "last_updated_at": now.Add(-30 * 24 * time.Hour).Unix(), "update_count": 0,
	})

	sel := New(store)
	out, err := sel.Select(context.Background(), now)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	ids := map[string]bool{}
	for _, s := range out {
		ids[s.ID] = true
	}
	if !ids["recent"] {
		t.Fatalf("expected recent synthesis included unconditionally, got %+v", out)
	}
	if ids["old-low-score"] {
		t.Fatalf("expected old low-score synthesis excluded, got %+v", out)
	}
}

func TestSelectIncludesOldHighScore(t *testing.T) {
	store := vectorstore.NewMemory()
	now := time.Now()

	_ = store.Upsert(context.Background(), vectorstore.CollectionSyntheses, "old-high-score", []float64{1, 1}, map[string]any{
		"created_at": now.Add(-30 * 24 * time.Hour).Unix(), "first_seen": now.Add(-40 * 24 * time.Hour).Unix(),
		"last_updated_at": now.Add(-30 * 24 * time.Hour).Unix(), "update_count": 3,
	})

	sel := New(store)
	out, err := sel.Select(context.Background(), now)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected the high-scoring old synthesis included, got %+v", out)
	}
}
