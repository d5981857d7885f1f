package ctxbuilder

import (
	"regexp"
	"strings"
)

var (
	datePattern       = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b(?:January|February|March|April|May|June|July|August|September|October|November|December|janvier|février|mars|avril|mai|juin|juillet|août|septembre|octobre|novembre|décembre)\s+\d{1,2}\b`)
	percentPattern    = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s?%`)
	largeNumberUnit   = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s?(?:million|billion|thousand|milliard|million|mille|km|kg|m²|\$|€|£)\b`)
	quotedAttribution = regexp.MustCompile(`"[^"]{3,}"\s*(?:said|according to|selon|a déclaré)`)
	bareNumber        = regexp.MustCompile(`\b\d+\b`)
	guillemetQuote    = regexp.MustCompile(`«[^»]{3,}»`)
	hedgeWords        = []string{
		"probablement", "semble", "seems", "apparently", "pourrait",
		"possibly", "might", "peut-être", "allegedly", "reportedly",
		"sans doute", "vraisemblablement",
	}
)

// FactDensity implements 4.L step 2: density = facts / (facts + hedges + 1),
// clamped to [0, 1].
func FactDensity(text string) float64 {
	facts := float64(len(datePattern.FindAllString(text, -1)))
	facts += float64(len(percentPattern.FindAllString(text, -1)))
	facts += float64(len(largeNumberUnit.FindAllString(text, -1)))
	facts += float64(len(quotedAttribution.FindAllString(text, -1)))
	facts += float64(len(bareNumber.FindAllString(text, -1))) * 0.5
	facts += float64(len(guillemetQuote.FindAllString(text, -1))) * 2

	hedges := 0.0
	lower := strings.ToLower(text)
	for _, h := range hedgeWords {
		hedges += float64(strings.Count(lower, h))
	}

	density := facts / (facts + hedges + 1)
	if density < 0 {
		density = 0
	}
	if density > 1 {
		density = 1
	}
	return density
}

// ScoreChunks attaches a fact-density score to every chunk.
func ScoreChunks(chunks []Chunk) []Chunk {
	for i := range chunks {
		chunks[i].Density = FactDensity(chunks[i].Text)
	}
	return chunks
}

// TopKByDensity returns the k highest-density chunks, stable on ties by
// original order.
func TopKByDensity(chunks []Chunk, k int) []Chunk {
	sorted := make([]Chunk, len(chunks))
	copy(sorted, chunks)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Density > sorted[j-1].Density; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if k > 0 && len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}
