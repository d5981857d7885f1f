package ctxbuilder

import (
	"regexp"
	"strconv"
	"strings"

	"novasynth/internal/core"
	"novasynth/internal/vectorstore"
)

var (
	negationWords = []string{"not", "no", "never", "ne pas", "aucun", "jamais", "n'a pas"}
	integerPattern = regexp.MustCompile(`\b\d+\b`)
)

// ContradictionKind mirrors 4.L step 3's two surfaced kinds.
type ContradictionKind string

const (
	ContradictionFactual  ContradictionKind = "factual"
	ContradictionTemporal ContradictionKind = "temporal"
)

// Contradiction is one detected disagreement between two articles.
type Contradiction struct {
	ArticleAID string
	ArticleBID string
	Kind       ContradictionKind
	Detail     string
}

// MaxContradictionsPerCluster caps 4.L step 3's output.
const MaxContradictionsPerCluster = 3

// DetectContradictions runs 4.L step 3 across all article pairs whose
// cosine similarity is >= 0.75.
func DetectContradictions(articles []core.Article) []Contradiction {
	var found []Contradiction

	for i := 0; i < len(articles); i++ {
		for j := i + 1; j < len(articles); j++ {
			if len(found) >= MaxContradictionsPerCluster {
				return found
			}
			a, b := articles[i], articles[j]
			if vectorstore.CosineSimilarity(a.Embedding, b.Embedding) < 0.75 {
				continue
			}
			if c, ok := negationAsymmetry(a, b); ok {
				found = append(found, c)
				continue
			}
			if c, ok := integerDivergence(a, b); ok {
				found = append(found, c)
				continue
			}
			if c, ok := dateDivergence(a, b); ok {
				found = append(found, c)
			}
		}
	}
	return found
}

func negationAsymmetry(a, b core.Article) (Contradiction, bool) {
	countA := countNegations(a.Body)
	countB := countNegations(b.Body)
	diff := countA - countB
	if diff < 0 {
		diff = -diff
	}
	if diff >= 3 {
		return Contradiction{ArticleAID: a.ID, ArticleBID: b.ID, Kind: ContradictionFactual, Detail: "divergent negation counts"}, true
	}
	return Contradiction{}, false
}

func countNegations(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, w := range negationWords {
		count += strings.Count(lower, w)
	}
	return count
}

func integerDivergence(a, b core.Article) (Contradiction, bool) {
	setA := integerSet(a.Body)
	setB := integerSet(b.Body)
	if len(setA) < 2 || len(setB) < 2 {
		return Contradiction{}, false
	}
	shared := 0
	for v := range setA {
		if setB[v] {
			shared++
		}
	}
	total := len(setA) + len(setB)
	if total > 0 && float64(shared*2)/float64(total) < 0.3 {
		return Contradiction{ArticleAID: a.ID, ArticleBID: b.ID, Kind: ContradictionFactual, Detail: "divergent numeric figures"}, true
	}
	return Contradiction{}, false
}

func integerSet(text string) map[int]bool {
	set := map[int]bool{}
	for _, m := range integerPattern.FindAllString(text, -1) {
		if v, err := strconv.Atoi(m); err == nil {
			set[v] = true
		}
	}
	return set
}

func dateDivergence(a, b core.Article) (Contradiction, bool) {
	datesA := datePattern.FindAllString(a.Body, -1)
	datesB := datePattern.FindAllString(b.Body, -1)
	if len(datesA) == 0 || len(datesB) == 0 {
		return Contradiction{}, false
	}
	if datesA[0] != datesB[0] {
		return Contradiction{ArticleAID: a.ID, ArticleBID: b.ID, Kind: ContradictionTemporal, Detail: "divergent dates reported"}, true
	}
	return Contradiction{}, false
}
