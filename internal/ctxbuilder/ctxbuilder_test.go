package ctxbuilder

import (
	"strings"
	"testing"
	"time"

	"novasynth/internal/core"
)

func TestChunkArticlesRespectsSentenceBoundariesAndOverlap(t *testing.T) {
	body := strings.Repeat("This is a sentence with several words in it. ", 40)
	articles := []core.Article{{ID: "a1", Title: "Headline", Body: body}}

	chunks := ChunkArticles(articles, 50, 10)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.ArticleID != "a1" {
			t.Fatalf("expected ArticleID a1, got %s", c.ArticleID)
		}
	}
}

func TestFactDensityRewardsFactsAndPenalizesHedges(t *testing.T) {
	factual := `On January 5, inflation rose 3.5%, adding 2 million jobs, "a clear signal," said the minister.`
	hedgy := "It seems the situation might possibly improve, allegedly, according to some."

	df := FactDensity(factual)
	dh := FactDensity(hedgy)
	if df <= dh {
		t.Fatalf("expected factual density (%f) > hedgy density (%f)", df, dh)
	}
	if df < 0 || df > 1 || dh < 0 || dh > 1 {
		t.Fatalf("density out of [0,1] range: %f %f", df, dh)
	}
}

func TestTopKByDensitySortsDescending(t *testing.T) {
	chunks := []Chunk{
		{Text: "a", Density: 0.2},
		{Text: "b", Density: 0.9},
		{Text: "c", Density: 0.5},
	}
	top := TopKByDensity(chunks, 2)
	if len(top) != 2 || top[0].Text != "b" || top[1].Text != "c" {
		t.Fatalf("unexpected ordering: %+v", top)
	}
}

func TestExtractFindsPersonsOrgsLocationsAndDates(t *testing.T) {
	text := "Marie Curie met officials at the Acme Group near Paris on January 5."
	entities := Extract(text)

	if !contains(entities.Organizations, "Acme Group") {
		t.Fatalf("expected Acme Group as organization, got %+v", entities.Organizations)
	}
	if !contains(entities.Persons, "Marie Curie") {
		t.Fatalf("expected Marie Curie as person, got %+v", entities.Persons)
	}
	if len(entities.Dates) == 0 {
		t.Fatalf("expected at least one date extracted")
	}
}

func TestDetectContradictionsFlagsDivergentDates(t *testing.T) {
	a := core.Article{ID: "a", Body: "The summit took place on January 5.", Embedding: []float64{1, 0, 0}}
	b := core.Article{ID: "b", Body: "The summit took place on February 10.", Embedding: []float64{0.99, 0.05, 0}}

	contradictions := DetectContradictions([]core.Article{a, b})
	if len(contradictions) == 0 {
		t.Fatalf("expected at least one contradiction")
	}
	if contradictions[0].Kind != ContradictionTemporal {
		t.Fatalf("expected temporal contradiction, got %s", contradictions[0].Kind)
	}
}

func TestDeriveNarrativeArc(t *testing.T) {
	now := time.Now()
	if arc := DeriveNarrativeArc(0, time.Time{}, 2, now); arc != core.ArcEmerging {
		t.Fatalf("expected emerging, got %s", arc)
	}
	if arc := DeriveNarrativeArc(5, now.Add(-time.Hour), 6, now); arc != core.ArcPeak {
		t.Fatalf("expected peak, got %s", arc)
	}
	if arc := DeriveNarrativeArc(3, now.Add(-4*24*time.Hour), 1, now); arc != core.ArcDeclining {
		t.Fatalf("expected declining, got %s", arc)
	}
	if arc := DeriveNarrativeArc(3, now.Add(-8*24*time.Hour), 1, now); arc != core.ArcResolved {
		t.Fatalf("expected resolved, got %s", arc)
	}
}

func TestShouldEnrichGating(t *testing.T) {
	if use, reason := ShouldEnrich(GateInput{CostControlled: true}); use || reason != ReasonCostControl {
		t.Fatalf("expected cost_control gate to block, got %v %s", use, reason)
	}
	if use, reason := ShouldEnrich(GateInput{IsBreaking: true}); !use || reason != ReasonUrgentBreaking {
		t.Fatalf("expected urgent_breaking to enrich, got %v %s", use, reason)
	}
	if use, reason := ShouldEnrich(GateInput{MinTier: core.TierMinor}); use || reason != ReasonMinorTopic {
		t.Fatalf("expected minor_topic to skip, got %v %s", use, reason)
	}
	if use, reason := ShouldEnrich(GateInput{ScrapeSucceeded: true, MinTier: core.TierStandard}); use || reason != ReasonScrapeSuccess {
		t.Fatalf("expected scrape_success to skip, got %v %s", use, reason)
	}
	if use, reason := ShouldEnrich(GateInput{MinTier: core.TierMajor, ScrapeSucceeded: false}); !use || reason != ReasonTier1ScrapeFailed {
		t.Fatalf("expected tier1_scrape_failed to enrich, got %v %s", use, reason)
	}
}

func TestIsBreakingNewsKeywordMatch(t *testing.T) {
	if !IsBreakingNews("BREAKING: markets react") {
		t.Fatalf("expected breaking keyword match")
	}
	if IsBreakingNews("a calm quarterly report") {
		t.Fatalf("expected no breaking keyword match")
	}
}

func contains(items []string, target string) bool {
	for _, i := range items {
		if i == target {
			return true
		}
	}
	return false
}
