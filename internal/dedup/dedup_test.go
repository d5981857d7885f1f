package dedup

import (
	"testing"
	"time"

	"novasynth/internal/core"
)

func TestPassOneRejectsExactCollisions(t *testing.T) {
	a := core.Article{Title: "Same Title", Body: "Same body text"}
	b := a
	c := core.Article{Title: "Different", Body: "Other body"}

	out := PassOne([]core.Article{a, b, c})
	if len(out) != 2 {
		t.Fatalf("expected 2 articles after pass one, got %d", len(out))
	}
}

func TestPassTwoMergesSimilarEmbeddings(t *testing.T) {
	now := time.Now()
	a := core.Article{Title: "A", SourceDomain: "siteA", PublishedAt: now, Embedding: []float64{1, 0, 0}}
	b := core.Article{Title: "B", SourceDomain: "siteB", PublishedAt: now.Add(time.Minute), Embedding: []float64{0.99, 0.01, 0}}
	c := core.Article{Title: "C", SourceDomain: "siteC", PublishedAt: now.Add(-time.Minute), Embedding: []float64{0, 1, 0}}

	out := PassTwo([]core.Article{a, b, c}, 0.9)
	if len(out) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(out))
	}

	var merged core.Article
	for _, art := range out {
		if art.DuplicateCount > 0 {
			merged = art
		}
	}
	if merged.Title != "A" {
		t.Fatalf("expected earliest-published article A to be the representative, got %s", merged.Title)
	}
	if merged.DuplicateCount != 1 || len(merged.CoveredBySources) != 2 {
		t.Fatalf("expected 1 duplicate covering 2 sources, got %+v", merged)
	}
}
