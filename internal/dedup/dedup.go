// Package dedup implements the two-pass fingerprint dedup (4.G): a
// cheap synchronous MD5 pass over title+body, then an embedding-cosine
// pass across all survivors of pass 1.
package dedup

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"

	"novasynth/internal/core"
	"novasynth/internal/vectorstore"
)

// DefaultSimilarityThreshold is the cosine threshold above which two
// articles are considered the same story.
const DefaultSimilarityThreshold = 0.92

// Fingerprint returns the MD5 of lower-cased "title || body", the
// pass-1 dedup key.
func Fingerprint(title, body string) string {
	sum := md5.Sum([]byte(strings.ToLower(title + "||" + body)))
	return fmt.Sprintf("%x", sum)
}

// PassOne rejects exact title+body collisions within the run,
// synchronously, keeping the first-seen occurrence of each fingerprint.
func PassOne(articles []core.Article) []core.Article {
	seen := make(map[string]bool, len(articles))
	out := make([]core.Article, 0, len(articles))
	for _, a := range articles {
		fp := Fingerprint(a.Title, a.Body)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, a)
	}
	return out
}

// PassTwo collapses near-duplicates by embedding cosine similarity.
// Articles above threshold are merged into the earliest-published
// representative, accumulating covered_by_sources and duplicate_count.
// Articles must already carry an Embedding (4.H runs before this).
func PassTwo(articles []core.Article, threshold float64) []core.Article {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	n := len(articles)
	merged := make([]bool, n)
	// Stable order: earliest-published first makes "first unmerged" the
	// natural representative for each cluster.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return articles[order[i]].PublishedAt.Before(articles[order[j]].PublishedAt)
	})

	var out []core.Article
	for _, i := range order {
		if merged[i] {
			continue
		}
		rep := articles[i]
		covered := map[string]bool{rep.SourceDomain: true}
		dupCount := 0

		for _, j := range order {
			if j == i || merged[j] {
				continue
			}
			if vectorstore.CosineSimilarity(rep.Embedding, articles[j].Embedding) >= threshold {
				merged[j] = true
				covered[articles[j].SourceDomain] = true
				dupCount++
			}
		}

		if dupCount > 0 {
			rep.DuplicateCount = dupCount
			rep.CoveredBySources = domainSet(covered)
		}
		merged[i] = true
		out = append(out, rep)
	}
	return out
}

func domainSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Run applies both passes in sequence, the pipeline's full 4.G step.
func Run(articles []core.Article, similarityThreshold float64) []core.Article {
	return PassTwo(PassOne(articles), similarityThreshold)
}
