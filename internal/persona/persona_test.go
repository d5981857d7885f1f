package persona

import (
	"math/rand"
	"testing"

	"novasynth/internal/core"
)

func TestSelectForcesNeutralOnBreaking(t *testing.T) {
	got := Select("technology", core.SentimentNeutral, core.IntensityBreaking, "Big News", nil, nil, rand.New(rand.NewSource(1)))
	if got.ID != Neutral.ID {
		t.Fatalf("expected neutral, got %s", got.ID)
	}
}

func TestSelectKeywordOverrideWins(t *testing.T) {
	overrides := []KeywordOverride{{Phrase: "moon landing", PersonaID: "storyteller", Confidence: 0.9}}
	got := Select("technology", core.SentimentNeutral, core.IntensityStandard, "The Moon Landing Anniversary", nil, overrides, rand.New(rand.NewSource(1)))
	if got.ID != "storyteller" {
		t.Fatalf("expected storyteller override, got %s", got.ID)
	}
}

func TestSelectSentimentModulatesCategoryMapping(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	got := Select("business", core.SentimentPositive, core.IntensityStandard, "Quarterly results", nil, nil, rng)
	if got.ID != "optimist" && got.ID != Neutral.ID {
		// uniform-random branch can still fire; accept any valid persona id
		found := false
		for _, p := range Personas {
			if p.ID == got.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected a known persona id, got %s", got.ID)
		}
	}
}

func TestLearnerReinforceMovesConfidence(t *testing.T) {
	l := NewLearner()
	l.Reinforce("rocket launch", "storyteller", true)
	l.Reinforce("rocket launch", "storyteller", true)

	overrides := l.Overrides()
	if len(overrides) != 1 {
		t.Fatalf("expected 1 override, got %d", len(overrides))
	}
	if overrides[0].Confidence <= 0.5 {
		t.Fatalf("expected confidence to have increased, got %f", overrides[0].Confidence)
	}
}

func TestScoreTextRewardsKeywordsAndSignature(t *testing.T) {
	p := byID("optimist")
	text := "This is promising: a genuine breakthrough. Here's the bright side: things are improving."
	s := ScoreText(p, text)
	if s.Signature == 0 {
		t.Fatalf("expected signature phrase to be detected")
	}
	if !Passes(s) {
		t.Fatalf("expected score to pass threshold, got %+v", s)
	}
}

func TestScoreTextRejectsForbiddenVocabulary(t *testing.T) {
	p := Identity{ID: "test", ForbiddenWords: []string{"disaster"}}
	s := ScoreText(p, "This was an absolute disaster.")
	if s.Vocabulary != 0 {
		t.Fatalf("expected vocabulary score 0, got %f", s.Vocabulary)
	}
}

func TestPassesRejectsLowScoreWithoutSignature(t *testing.T) {
	s := Score{Total: 0.3, Tone: 0.1, Signature: 0}
	if Passes(s) {
		t.Fatalf("expected low score without signature to be rejected")
	}
}
