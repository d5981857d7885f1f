package persona

import (
	"regexp"
	"strings"
)

const (
	weightTone         = 0.35
	weightStyleMarkers = 0.25
	weightSignature    = 0.15
	weightVocabulary   = 0.25

	qualityThreshold = 0.6
)

// Score is the 0..1 persona quality score, broken into its sub-scores
// for inspection/logging.
type Score struct {
	Tone         float64
	StyleMarkers float64
	Signature    float64
	Vocabulary   float64
	Total        float64
}

// ScoreText scores a persona-voiced synthesis body against its Identity's
// style keywords, regex patterns, forbidden words and signature phrase.
func ScoreText(persona Identity, text string) Score {
	lower := strings.ToLower(text)

	tone := toneScore(persona, lower)
	styleMarkers := styleMarkerScore(persona, lower)
	signature := 0.0
	if persona.SignaturePhrase != "" && strings.Contains(lower, strings.ToLower(persona.SignaturePhrase)) {
		signature = 1.0
	}
	vocabulary := vocabularyScore(persona, lower)

	total := tone*weightTone + styleMarkers*weightStyleMarkers + signature*weightSignature + vocabulary*weightVocabulary
	return Score{Tone: tone, StyleMarkers: styleMarkers, Signature: signature, Vocabulary: vocabulary, Total: total}
}

func toneScore(persona Identity, lower string) float64 {
	if len(persona.StyleKeywords) == 0 {
		return 0.5
	}
	hits := 0
	for _, kw := range persona.StyleKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	score := float64(hits) / float64(len(persona.StyleKeywords))
	if score > 1 {
		score = 1
	}
	return score
}

func styleMarkerScore(persona Identity, lower string) float64 {
	if len(persona.StylePatterns) == 0 {
		return 0.5
	}
	hits := 0
	for _, pattern := range persona.StylePatterns {
		if re, err := regexp.Compile("(?i)" + pattern); err == nil && re.MatchString(lower) {
			hits++
		}
	}
	score := float64(hits) / float64(len(persona.StylePatterns))
	if score > 1 {
		score = 1
	}
	return score
}

func vocabularyScore(persona Identity, lower string) float64 {
	for _, forbidden := range persona.ForbiddenWords {
		if strings.Contains(lower, strings.ToLower(forbidden)) {
			return 0
		}
	}
	return 1
}

// Passes reports whether a Score clears 4.N's acceptance bar: rejected
// when the overall score is below qualityThreshold, or when there is no
// signature phrase and tone is below 0.4.
func Passes(s Score) bool {
	if s.Total < qualityThreshold {
		return false
	}
	if s.Signature == 0 && s.Tone < 0.4 {
		return false
	}
	return true
}
