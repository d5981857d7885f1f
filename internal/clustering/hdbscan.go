// Package clustering implements the Hybrid Cluster Engine (4.I):
// density-based clustering over the combined article+past-synthesis
// vector set, with a connected-components fallback when the density
// backend is unavailable.
package clustering

import (
	"fmt"
	"reflect"

	"github.com/humilityai/hdbscan"

	"novasynth/internal/core"
	"novasynth/internal/vectorstore"
)

// Config holds the 4.I clustering parameters.
type Config struct {
	MinClusterSize          int
	MinSamples              int
	ClusterSelectionEpsilon float64
	FallbackThreshold       float64 // greedy-fallback similarity threshold, default 0.70
}

// DefaultConfig matches 4.I's stated parameters exactly.
func DefaultConfig() Config {
	return Config{
		MinClusterSize:          2,
		MinSamples:              1,
		ClusterSelectionEpsilon: 0.15,
		FallbackThreshold:       0.70,
	}
}

// item is one vector entering clustering, tagged with which side of
// the article/past-synthesis partition it came from and its index in
// that side's original slice.
type item struct {
	vector       []float64
	isArticle    bool
	originalIdx  int
}

// cosineDistance is 1 - cosine similarity, clamped to [0, 2].
func cosineDistance(a, b []float64) float64 {
	sim := vectorstore.CosineSimilarity(a, b)
	d := 1 - sim
	if d < 0 {
		d = 0
	}
	if d > 2 {
		d = 2
	}
	return d
}

// Engine runs the hybrid clustering algorithm.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Cluster groups articles and past syntheses together by embedding
// similarity, producing clusters tagged new (no past syntheses) or
// update (past syntheses present). Clusters with zero articles are
// dropped: pure history brings no news.
func (e *Engine) Cluster(articles []core.Article, pastSyntheses []core.Synthesis) ([]core.Cluster, error) {
	items := buildItems(articles, pastSyntheses)
	if len(items) == 0 {
		return nil, nil
	}

	labels, err := e.densityLabels(items)
	if err != nil {
		labels = e.greedyLabels(items)
	}

	return buildClusters(items, labels, articles, pastSyntheses), nil
}

func buildItems(articles []core.Article, pastSyntheses []core.Synthesis) []item {
	var items []item
	for i, a := range articles {
		if len(a.Embedding) > 0 {
			items = append(items, item{vector: a.Embedding, isArticle: true, originalIdx: i})
		}
	}
	for i, s := range pastSyntheses {
		if len(s.Embedding) > 0 {
			items = append(items, item{vector: s.Embedding, isArticle: false, originalIdx: i})
		}
	}
	return items
}

// densityLabels runs HDBSCAN over items, returning one label per item
// (-1 for noise). The humilityai/hdbscan library exposes neither
// min_samples nor cluster_selection_epsilon as constructor parameters,
// so epsilon is approximated as a post-pass: clusters whose centroids
// fall within epsilon cosine-distance of each other are merged, which
// is the library-compatible reading of "loosen the density cut by
// epsilon" the spec calls for.
func (e *Engine) densityLabels(items []item) ([]int, error) {
	if len(items) < e.cfg.MinClusterSize {
		return nil, fmt.Errorf("too few items for density clustering")
	}

	dataPoints := make([][]float64, len(items))
	for i, it := range items {
		dataPoints[i] = it.vector
	}

	clustering, err := hdbscan.NewClustering(dataPoints, e.cfg.MinClusterSize)
	if err != nil {
		return nil, fmt.Errorf("create hdbscan clustering: %w", err)
	}
	clustering = clustering.OutlierDetection()
	if err := clustering.Run(cosineDistance, hdbscan.VarianceScore, true); err != nil {
		return nil, fmt.Errorf("run hdbscan: %w", err)
	}

	clusterData := extractClusterData(clustering)
	clusterData = mergeByEpsilon(clusterData, e.cfg.ClusterSelectionEpsilon)

	labels := make([]int, len(items))
	for i := range labels {
		labels[i] = -1
	}
	for clusterID, cd := range clusterData {
		for _, idx := range cd.Points {
			labels[idx] = clusterID
		}
	}
	return labels, nil
}

// mergeByEpsilon merges clusters whose centroids are within epsilon
// cosine-distance of one another, approximating cluster_selection_epsilon.
func mergeByEpsilon(clusters []clusterData, epsilon float64) []clusterData {
	if epsilon <= 0 || len(clusters) < 2 {
		return clusters
	}
	merged := make([]bool, len(clusters))
	var out []clusterData
	for i := range clusters {
		if merged[i] {
			continue
		}
		acc := clusters[i]
		for j := i + 1; j < len(clusters); j++ {
			if merged[j] {
				continue
			}
			if cosineDistance(acc.Centroid, clusters[j].Centroid) <= epsilon {
				acc.Points = append(acc.Points, clusters[j].Points...)
				merged[j] = true
			}
		}
		out = append(out, acc)
	}
	return out
}

// clusterData mirrors the unexported cluster fields the hdbscan
// library keeps, reached via reflection since it exposes no accessor.
type clusterData struct {
	Centroid []float64
	Points   []int
}

func extractClusterData(clustering *hdbscan.Clustering) []clusterData {
	v := reflect.ValueOf(clustering).Elem()
	clustersField := v.FieldByName("Clusters")
	if !clustersField.IsValid() {
		return nil
	}

	n := clustersField.Len()
	result := make([]clusterData, n)
	for i := 0; i < n; i++ {
		cp := clustersField.Index(i)
		if cp.Kind() == reflect.Ptr {
			cp = cp.Elem()
		}
		if cf := cp.FieldByName("Centroid"); cf.IsValid() && cf.Kind() == reflect.Slice {
			centroid := make([]float64, cf.Len())
			for j := range centroid {
				centroid[j] = cf.Index(j).Float()
			}
			result[i].Centroid = centroid
		}
		if pf := cp.FieldByName("Points"); pf.IsValid() && pf.Kind() == reflect.Slice {
			points := make([]int, pf.Len())
			for j := range points {
				points[j] = int(pf.Index(j).Int())
			}
			result[i].Points = points
		}
	}
	return result
}
