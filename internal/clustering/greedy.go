package clustering

import (
	"fmt"

	"novasynth/internal/core"
	"novasynth/internal/vectorstore"
)

// greedyLabels is the 4.I fallback used when the density backend is
// unavailable: for each unassigned item, if at least 2 others are
// above the similarity threshold, form a cluster with them; otherwise
// leave it as noise (-1). Grounded on the teacher's connected-
// components idea in the old semantic clusterer, simplified to a
// single in-process similarity matrix instead of an external vector
// search round-trip per item.
func (e *Engine) greedyLabels(items []item) []int {
	n := len(items)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	adjacency := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if cosineDistance(items[i].vector, items[j].vector) <= (1 - e.cfg.FallbackThreshold) {
				adjacency[i] = append(adjacency[i], j)
				adjacency[j] = append(adjacency[j], i)
			}
		}
	}

	nextLabel := 0
	visited := make([]bool, n)
	for i := 0; i < n; i++ {
		if visited[i] || len(adjacency[i]) < 2 {
			continue
		}
		component := bfsComponent(i, adjacency, visited)
		if len(component) < 2 {
			continue
		}
		for _, idx := range component {
			labels[idx] = nextLabel
		}
		nextLabel++
	}
	return labels
}

func bfsComponent(start int, adjacency [][]int, visited []bool) []int {
	queue := []int{start}
	visited[start] = true
	var component []int
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		component = append(component, cur)
		for _, neighbor := range adjacency[cur] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}
	return component
}

// buildClusters partitions items by label into core.Cluster values,
// splitting each label's members back into articles vs past_syntheses
// by the index partition recorded in item, dropping any cluster with
// zero articles, and tagging the remainder new/update.
func buildClusters(items []item, labels []int, articles []core.Article, pastSyntheses []core.Synthesis) []core.Cluster {
	byLabel := make(map[int][]int)
	for i, label := range labels {
		if label < 0 {
			continue
		}
		byLabel[label] = append(byLabel[label], i)
	}

	var clusters []core.Cluster
	clusterID := 0
	for _, memberIdx := range byLabel {
		var clusterArticles []core.Article
		var clusterSyntheses []core.Synthesis
		for _, idx := range memberIdx {
			it := items[idx]
			if it.isArticle {
				clusterArticles = append(clusterArticles, articles[it.originalIdx])
			} else {
				clusterSyntheses = append(clusterSyntheses, pastSyntheses[it.originalIdx])
			}
		}

		if len(clusterArticles) == 0 {
			continue
		}

		clusterType := core.ClusterNew
		if len(clusterSyntheses) > 0 {
			clusterType = core.ClusterUpdate
		}

		clusters = append(clusters, core.Cluster{
			ID:            fmt.Sprintf("cluster_%d", clusterID),
			Articles:      clusterArticles,
			PastSyntheses: clusterSyntheses,
			Type:          clusterType,
			Centroid:      clusterCentroid(clusterArticles, clusterSyntheses),
		})
		clusterID++
	}
	return clusters
}

func clusterCentroid(articles []core.Article, syntheses []core.Synthesis) []float64 {
	var vectors [][]float64
	for _, a := range articles {
		if len(a.Embedding) > 0 {
			vectors = append(vectors, a.Embedding)
		}
	}
	for _, s := range syntheses {
		if len(s.Embedding) > 0 {
			vectors = append(vectors, s.Embedding)
		}
	}
	return vectorstore.MeanPool(vectors)
}
