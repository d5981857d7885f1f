package synthesis

import (
	"regexp"
	"strings"

	"novasynth/internal/core"
)

const minCausalEdges = 3

// causalPatterns are the French/English regex families the pattern-based
// fallback extractor matches against a generated body when the LLM's own
// causal_chain has too few validated entries.
var causalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([^.]{5,120}?)\s+(?:a causé|a entraîné|a provoqué)\s+([^.]{5,120}?)[.\n]`),
	regexp.MustCompile(`(?i)([^.]{5,120}?)\s+(?:led to|resulted in|caused|triggered)\s+([^.]{5,120}?)[.\n]`),
}

// validateCausalEdges drops entries missing cause/effect or shorter than
// 5 characters, mapping the remaining ones to core.CausalEdge.
func validateCausalEdges(raw []causalEdgeResponse) []core.CausalEdge {
	var edges []core.CausalEdge
	for _, e := range raw {
		cause := strings.TrimSpace(e.Cause)
		effect := strings.TrimSpace(e.Effect)
		if len(cause) < 5 || len(effect) < 5 {
			continue
		}
		edgeType := core.CausalEdgeType(e.Type)
		switch edgeType {
		case core.CausalCauses, core.CausalTriggers, core.CausalEnables, core.CausalPrevents:
		default:
			edgeType = core.CausalCauses
		}
		edges = append(edges, core.CausalEdge{Cause: cause, Effect: effect, Type: edgeType, Sources: e.Sources})
	}
	return edges
}

// extractCausalEdgesFromText is the secondary pattern-based causal
// extractor: invoked when the validated LLM-provided chain has fewer than
// minCausalEdges entries, it mines cause -> effect relations directly out
// of the generated body using regex families for French and English.
func extractCausalEdgesFromText(body string) []core.CausalEdge {
	var edges []core.CausalEdge
	for _, re := range causalPatterns {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			cause := strings.TrimSpace(m[1])
			effect := strings.TrimSpace(m[2])
			if len(cause) < 5 || len(effect) < 5 {
				continue
			}
			edges = append(edges, core.CausalEdge{Cause: cause, Effect: effect, Type: core.CausalCauses})
		}
	}
	return edges
}

// ResolveCausalChain implements 4.M's causal-chain validation: validate the
// LLM's own chain, then top it up with the pattern-based extractor when
// fewer than minCausalEdges entries survive.
func ResolveCausalChain(raw []causalEdgeResponse, body string) []core.CausalEdge {
	edges := validateCausalEdges(raw)
	if len(edges) >= minCausalEdges {
		return edges
	}
	edges = append(edges, extractCausalEdgesFromText(body)...)
	return edges
}
