// Package persona implements the Persona Selector (4.N): category-to-
// persona mapping, breaking-news override, sentiment-modulated weighted
// random selection, a keyword-learning override table, and the persona
// quality scorer that decides whether a persona-voiced rewrite is kept.
package persona

import (
	"math/rand"
	"strings"

	"novasynth/internal/core"
)

// Identity is one named editorial voice.
type Identity struct {
	ID              string
	Name            string
	Tagline         string
	StyleKeywords   []string
	StylePatterns   []string
	ForbiddenWords  []string
	SignaturePhrase string
}

// Neutral is the always-available fallback persona.
var Neutral = Identity{ID: "neutral", Name: "Neutral Desk", Tagline: "Straight reporting, no embellishment."}

// Personas is the fixed set of five named personas plus Neutral.
var Personas = []Identity{
	{ID: "optimist", Name: "The Optimist", Tagline: "Finds the upside in every development.",
		StyleKeywords: []string{"promising", "opportunity", "breakthrough", "encouraging"}, SignaturePhrase: "Here's the bright side:"},
	{ID: "skeptic", Name: "The Skeptic", Tagline: "Questions the official story.",
		StyleKeywords: []string{"however", "questionable", "remains unclear", "worth scrutinizing"}, SignaturePhrase: "Not so fast."},
	{ID: "sardonic", Name: "The Sardonic Wit", Tagline: "Dry, pointed commentary.",
		StyleKeywords: []string{"unsurprisingly", "predictably", "of course"}, SignaturePhrase: "Shocking, truly."},
	{ID: "analyst", Name: "The Analyst", Tagline: "Data-first, dispassionate breakdowns.",
		StyleKeywords: []string{"the data suggests", "trend", "metric", "baseline"}, SignaturePhrase: "Let's look at the numbers."},
	{ID: "storyteller", Name: "The Storyteller", Tagline: "Narrative-first framing.",
		StyleKeywords: []string{"imagine", "picture this", "the story begins"}, SignaturePhrase: "Every story has a beginning."},
}

// categoryMap is the fixed category -> persona id mapping.
var categoryMap = map[string]string{
	"technology": "analyst",
	"business":   "skeptic",
	"politics":   "skeptic",
	"culture":    "storyteller",
	"sports":     "storyteller",
	"science":    "optimist",
	"health":     "optimist",
	"world":      "analyst",
}

// KeywordOverride is one entry in the keyword-learning override table:
// a domain-specific phrase mapped to a persona id with a recorded
// confidence, possibly updated online by Learner.Reinforce.
type KeywordOverride struct {
	Phrase     string
	PersonaID  string
	Confidence float64
}

const keywordOverrideThreshold = 0.6

func byID(id string) Identity {
	for _, p := range Personas {
		if p.ID == id {
			return p
		}
	}
	return Neutral
}

// Select implements 4.N's persona selection rules for one synthesis,
// given its category, sentiment, topic intensity, extracted key entities
// and title, plus any learned keyword overrides.
func Select(category string, sentiment core.Sentiment, intensity core.TopicIntensity, title string, keyEntities []string, overrides []KeywordOverride, rng *rand.Rand) Identity {
	if intensity == core.IntensityBreaking {
		return Neutral
	}

	if id, ok := matchKeywordOverride(title, keyEntities, overrides); ok {
		return byID(id)
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	if rng.Float64() < 0.30 {
		return byID(Personas[rng.Intn(len(Personas))].ID)
	}

	base, ok := categoryMap[category]
	if !ok {
		return Neutral
	}
	switch sentiment {
	case core.SentimentPositive:
		base = "optimist"
	case core.SentimentNegative:
		base = "sardonic"
	}
	return byID(base)
}

func matchKeywordOverride(title string, keyEntities []string, overrides []KeywordOverride) (string, bool) {
	haystack := title
	for _, e := range keyEntities {
		haystack += " " + e
	}
	best := ""
	bestConfidence := 0.0
	for _, o := range overrides {
		if o.Confidence < keywordOverrideThreshold {
			continue
		}
		if strings.Contains(strings.ToLower(haystack), strings.ToLower(o.Phrase)) && o.Confidence > bestConfidence {
			best = o.PersonaID
			bestConfidence = o.Confidence
		}
	}
	return best, best != ""
}
