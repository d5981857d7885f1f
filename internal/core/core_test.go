package core

import (
	"testing"
	"time"
)

func TestSourceHealthSuccessRate(t *testing.T) {
	tests := []struct {
		name string
		h    SourceHealth
		want float64
	}{
		{"no data yet", SourceHealth{}, 1.0},
		{"all success", SourceHealth{Total: 4, Successful: 4}, 1.0},
		{"half success", SourceHealth{Total: 4, Successful: 2}, 0.5},
		{"all failure", SourceHealth{Total: 3, Failed: 3}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.h.SuccessRate(); got != tt.want {
				t.Errorf("SuccessRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArticlePassesExtractionRule(t *testing.T) {
	tests := []struct {
		name string
		a    Article
		want bool
	}{
		{"long body passes", Article{Body: string(make([]byte, 50))}, true},
		{"short body fails without title/meta", Article{Body: "too short"}, false},
		{
			"title+meta fallback passes",
			Article{Title: "A ten-char+ title", MetaDescription: "A sufficiently long meta description here"},
			true,
		},
		{
			"title+meta fallback fails when meta too short",
			Article{Title: "A ten-char+ title", MetaDescription: "short"},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.PassesExtractionRule(); got != tt.want {
				t.Errorf("PassesExtractionRule() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizedURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTPS://Example.com/Article/", "https://example.com/article"},
		{"  https://example.com/a  ", "https://example.com/a"},
		{"https://example.com", "https://example.com"},
	}
	for _, tt := range tests {
		if got := NormalizedURL(tt.in); got != tt.want {
			t.Errorf("NormalizedURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClusterIsEmpty(t *testing.T) {
	if !(Cluster{}).IsEmpty() {
		t.Error("zero-article cluster should be empty")
	}
	if (Cluster{Articles: []Article{{ID: "a1"}}}).IsEmpty() {
		t.Error("cluster with an article should not be empty")
	}
}

func TestSynthesisURLSet(t *testing.T) {
	s := Synthesis{Sources: []SourceRef{
		{URL: "https://Example.com/A/"},
		{URL: "https://example.com/a"},
		{URL: "https://example.com/b"},
	}}
	set := s.URLSet()
	if len(set) != 2 {
		t.Fatalf("expected 2 distinct normalized URLs, got %d: %v", len(set), set)
	}
	if _, ok := set["https://example.com/a"]; !ok {
		t.Error("expected normalized URL https://example.com/a in set")
	}
}

func TestSourceTierDefaults(t *testing.T) {
	var s Source
	if s.Tier != 0 {
		t.Fatalf("zero-value Source.Tier should be 0 (registry defaults it to TierStandard on Add)")
	}
}

func TestCausalGraphFallbackNote(t *testing.T) {
	g := CausalGraph{Edges: []CausalEdge{{Cause: "x", Effect: "y", Type: CausalCauses}}}
	if len(g.Edges) < 1 {
		t.Fatal("expected at least one edge")
	}
}

func TestTimeAwareFieldsZeroValue(t *testing.T) {
	var syn Synthesis
	if !syn.FirstSeen.Equal(time.Time{}) {
		t.Error("zero-value Synthesis.FirstSeen should be the zero time")
	}
}
