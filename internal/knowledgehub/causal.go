package knowledgehub

import (
	"strings"

	"novasynth/internal/core"
)

// AggregateCausalGraph merges the causal graphs of every synthesis that
// shares a story_id into a single graph: nodes and edges deduplicated by
// normalized label, with a central entity picked as the node touching the
// most edges. A supplemented feature (the spec's per-cluster causal chain
// has no story-level rollup of its own).
func AggregateCausalGraph(syntheses []core.Synthesis) core.CausalGraph {
	nodeSeen := map[string]string{} // normalized -> original casing
	edgeSeen := map[string]*core.CausalEdge{}
	degree := map[string]int{}

	addNode := func(label string) {
		norm := normalizeLabel(label)
		if norm == "" {
			return
		}
		if _, ok := nodeSeen[norm]; !ok {
			nodeSeen[norm] = label
		}
	}

	for _, s := range syntheses {
		for _, e := range s.CausalGraph.Edges {
			addNode(e.Cause)
			addNode(e.Effect)

			key := normalizeLabel(e.Cause) + "->" + normalizeLabel(e.Effect) + ":" + string(e.Type)
			if existing, ok := edgeSeen[key]; ok {
				existing.Sources = mergeSources(existing.Sources, e.Sources)
			} else {
				edge := e
				edgeSeen[key] = &edge
			}
			degree[normalizeLabel(e.Cause)]++
			degree[normalizeLabel(e.Effect)]++
		}
	}

	nodes := make([]string, 0, len(nodeSeen))
	for _, label := range nodeSeen {
		nodes = append(nodes, label)
	}

	edges := make([]core.CausalEdge, 0, len(edgeSeen))
	for _, e := range edgeSeen {
		edges = append(edges, *e)
	}

	central := ""
	bestDegree := 0
	for norm, d := range degree {
		if d > bestDegree {
			bestDegree = d
			central = nodeSeen[norm]
		}
	}

	return core.CausalGraph{Nodes: nodes, Edges: edges, CentralEntity: central}
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

func mergeSources(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string{}, a...)
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
