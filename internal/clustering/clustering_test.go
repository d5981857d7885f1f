package clustering

import (
	"testing"

	"novasynth/internal/core"
)

func TestClusterDropsZeroArticleClusters(t *testing.T) {
	e := New(DefaultConfig())

	articles := []core.Article{
		{ID: "a1", Embedding: []float64{1, 0, 0}},
		{ID: "a2", Embedding: []float64{0.98, 0.02, 0}},
	}
	pastSyntheses := []core.Synthesis{
		{ID: "s1", Embedding: []float64{0, 0, 1}},
	}

	clusters, err := e.Cluster(articles, pastSyntheses)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	for _, c := range clusters {
		if len(c.Articles) == 0 {
			t.Fatalf("expected no pure-history clusters, got %+v", c)
		}
	}
}

func TestClusterTagsUpdateWhenPastSynthesisPresent(t *testing.T) {
	e := New(DefaultConfig())

	articles := []core.Article{
		{ID: "a1", Embedding: []float64{1, 0, 0}},
		{ID: "a2", Embedding: []float64{0.99, 0.01, 0}},
	}
	pastSyntheses := []core.Synthesis{
		{ID: "s1", Embedding: []float64{0.98, 0.02, 0}},
	}

	clusters, err := e.Cluster(articles, pastSyntheses)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	found := false
	for _, c := range clusters {
		if len(c.PastSyntheses) > 0 {
			found = true
			if c.Type != core.ClusterUpdate {
				t.Fatalf("expected update type, got %s", c.Type)
			}
		}
	}
	if !found {
		t.Fatalf("expected at least one cluster to include the past synthesis")
	}
}

func TestGreedyLabelsFormsClusterFromThreeSimilarItems(t *testing.T) {
	e := New(DefaultConfig())
	items := []item{
		{vector: []float64{1, 0}, isArticle: true, originalIdx: 0},
		{vector: []float64{0.95, 0.05}, isArticle: true, originalIdx: 1},
		{vector: []float64{0.9, 0.1}, isArticle: true, originalIdx: 2},
		{vector: []float64{0, 1}, isArticle: true, originalIdx: 3},
	}
	labels := e.greedyLabels(items)
	if labels[0] == -1 || labels[0] != labels[1] || labels[1] != labels[2] {
		t.Fatalf("expected first three items clustered together, got %v", labels)
	}
	if labels[3] != -1 {
		t.Fatalf("expected the dissimilar item to remain noise, got %v", labels)
	}
}
