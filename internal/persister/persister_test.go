package persister

import (
	"context"
	"testing"

	"novasynth/internal/core"
	"novasynth/internal/vectorstore"
)

func TestPersistGeneratesIDAndMarksSources(t *testing.T) {
	store := vectorstore.NewMemory()
	_ = store.Upsert(context.Background(), vectorstore.CollectionArticles, "a1", []float64{1, 0}, map[string]any{
		"url": "https://example.test/story",
	})

	p := New(store)
	syn := &core.Synthesis{
		Title:   "A Story",
		Sources: []core.SourceRef{{URL: "https://example.test/story"}},
	}

	if err := p.Persist(context.Background(), syn, ""); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if syn.ID == "" {
		t.Fatalf("expected generated synthesis id")
	}

	points, err := store.Retrieve(context.Background(), vectorstore.CollectionArticles, []string{"a1"})
	if err != nil || len(points) != 1 {
		t.Fatalf("Retrieve: %v %v", points, err)
	}
	if points[0].Payload["used_in_synthesis_id"] != syn.ID {
		t.Fatalf("expected article marked with synthesis id, got %+v", points[0].Payload)
	}
}

func TestPersistReusesProvidedID(t *testing.T) {
	store := vectorstore.NewMemory()
	p := New(store)
	syn := &core.Synthesis{Title: "Updated story"}

	if err := p.Persist(context.Background(), syn, "existing-id"); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if syn.ID != "existing-id" {
		t.Fatalf("expected reused id, got %s", syn.ID)
	}
}

func TestPersistPersonaVariantLinksBaseSynthesis(t *testing.T) {
	store := vectorstore.NewMemory()
	p := New(store)
	base := &core.Synthesis{ID: "base1"}
	variant := &core.Synthesis{Title: "Persona take"}

	if err := p.PersistPersonaVariant(context.Background(), variant, base); err != nil {
		t.Fatalf("PersistPersonaVariant: %v", err)
	}
	if variant.BaseSynthesisID != "base1" || !variant.IsPersonaVersion {
		t.Fatalf("expected variant linked to base, got %+v", variant)
	}
}

func TestMarkOneSourceFailsSilentlyWhenNoMatch(t *testing.T) {
	store := vectorstore.NewMemory()
	p := New(store)
	if p.markOneSource(context.Background(), "https://nowhere.test/x", "syn1") {
		t.Fatalf("expected no match to return false")
	}
}
