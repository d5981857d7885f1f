package knowledgehub

import (
	"context"
	"testing"
	"time"

	"novasynth/internal/core"
	"novasynth/internal/vectorstore"
)

func TestResolveCreatesNewEntityThenReusesOnExactMatch(t *testing.T) {
	store := vectorstore.NewMemory()
	h := New(store)
	now := time.Now()

	first, err := h.Resolve(context.Background(), "Marie Curie", "person", []float64{1, 0, 0}, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.MentionCount != 1 {
		t.Fatalf("expected mention count 1, got %d", first.MentionCount)
	}

	second, err := h.Resolve(context.Background(), "Marie Curie", "person", []float64{1, 0, 0}, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same entity id on repeat mention")
	}
	if second.MentionCount != 2 {
		t.Fatalf("expected mention count bumped to 2, got %d", second.MentionCount)
	}
}

func TestResolveFuzzyMatchesCloseSpelling(t *testing.T) {
	store := vectorstore.NewMemory()
	h := New(store)
	now := time.Now()

	original, err := h.Resolve(context.Background(), "Volodymyr Zelensky", "person", nil, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	h2 := New(store) // fresh cache, forces the store-backed fuzzy path
	fuzzy, err := h2.Resolve(context.Background(), "Volodymir Zelensky", "person", nil, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if fuzzy.ID != original.ID {
		t.Fatalf("expected fuzzy match to reuse entity id, got %s vs %s", fuzzy.ID, original.ID)
	}
}

func TestAssignTopicPicksClosestCentroidAboveThreshold(t *testing.T) {
	store := vectorstore.NewMemory()
	h := New(store)
	now := time.Now()

	_, err := h.DetectTopics(context.Background(), "climate", []float64{1, 0}, 3, now)
	if err != nil {
		t.Fatalf("DetectTopics: %v", err)
	}

	topic, ok, err := h.AssignTopic(context.Background(), []float64{0.99, 0.05}, now)
	if err != nil {
		t.Fatalf("AssignTopic: %v", err)
	}
	if !ok || topic.Label != "climate" {
		t.Fatalf("expected assignment to climate topic, got %+v ok=%v", topic, ok)
	}
}

func TestAssignTopicReturnsFalseWhenNoneClose(t *testing.T) {
	store := vectorstore.NewMemory()
	h := New(store)
	now := time.Now()

	_, err := h.DetectTopics(context.Background(), "sports", []float64{1, 0}, 3, now)
	if err != nil {
		t.Fatalf("DetectTopics: %v", err)
	}

	_, ok, err := h.AssignTopic(context.Background(), []float64{0, 1}, now)
	if err != nil {
		t.Fatalf("AssignTopic: %v", err)
	}
	if ok {
		t.Fatalf("expected no topic assignment for orthogonal embedding")
	}
}

func TestAggregateCausalGraphMergesEdgesAndFindsCentral(t *testing.T) {
	syntheses := []core.Synthesis{
		{CausalGraph: core.CausalGraph{Edges: []core.CausalEdge{
			{Cause: "Strike", Effect: "Delays", Type: core.CausalCauses, Sources: []string{"s1"}},
		}}},
		{CausalGraph: core.CausalGraph{Edges: []core.CausalEdge{
			{Cause: "Strike", Effect: "Delays", Type: core.CausalCauses, Sources: []string{"s2"}},
			{Cause: "Strike", Effect: "Protests", Type: core.CausalTriggers},
		}}},
	}

	graph := AggregateCausalGraph(syntheses)
	if graph.CentralEntity != "Strike" {
		t.Fatalf("expected Strike as central entity, got %s", graph.CentralEntity)
	}
	if len(graph.Edges) != 2 {
		t.Fatalf("expected 2 deduplicated edges, got %d", len(graph.Edges))
	}
	for _, e := range graph.Edges {
		if e.Cause == "Strike" && e.Effect == "Delays" && len(e.Sources) != 2 {
			t.Fatalf("expected merged sources for duplicate edge, got %v", e.Sources)
		}
	}
}
