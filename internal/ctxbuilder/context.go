package ctxbuilder

import (
	"context"

	"novasynth/internal/circuit"
	"novasynth/internal/core"
	"novasynth/internal/llmclient"
)

// SynthesisContext is 4.L's final output: everything 4.M's prompt builder
// concatenates into the generation request.
type SynthesisContext struct {
	TopChunks          []Chunk
	Contradictions     []Contradiction
	KeyEntities        ExtractedEntities
	Historical         *HistoricalContext
	Enrichment         *EnrichmentResult
	PriorSynthesisText string
	IsUpdate           bool
}

// Build assembles 4.L's full structured context for one cluster. historical
// and enrichment are both optional: historical is nil on new-mode clusters,
// enrichment is nil when ShouldEnrich returned false.
func Build(cluster core.Cluster, topK, chunkWords, overlapWords int, historical *HistoricalContext, enrichment *EnrichmentResult, priorSynthesisText string) SynthesisContext {
	chunks := ChunkArticles(cluster.Articles, chunkWords, overlapWords)
	chunks = ScoreChunks(chunks)
	top := TopKByDensity(chunks, topK)

	contradictions := DetectContradictions(cluster.Articles)

	var fullText string
	for _, a := range cluster.Articles {
		fullText += a.Title + ". " + a.Body + " "
	}
	entities := Extract(fullText)

	return SynthesisContext{
		TopChunks:          top,
		Contradictions:     contradictions,
		KeyEntities:        entities,
		Historical:         historical,
		Enrichment:         enrichment,
		PriorSynthesisText: priorSynthesisText,
		IsUpdate:           cluster.Type == core.ClusterUpdate,
	}
}

// EnrichForCluster runs the gating decision and, if it fires, the parallel
// web-research/social-sentiment fan-out, returning nil when enrichment was
// not warranted.
func EnrichForCluster(ctx context.Context, breakers *circuit.Manager, research llmclient.WebResearch, sentiment llmclient.SocialSentiment, gate GateInput, query, topic string) *EnrichmentResult {
	use, _ := ShouldEnrich(gate)
	if !use {
		return nil
	}
	result := Enrich(ctx, breakers, research, sentiment, query, topic)
	return &result
}
