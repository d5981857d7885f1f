package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"novasynth/internal/circuit"
	"novasynth/internal/core"
	"novasynth/internal/ctxbuilder"
	"novasynth/internal/llmclient"
	"novasynth/internal/retry"
)

var validate = validator.New()

// Generator wraps an llmclient.LLM backend with 4.M's length budgeting,
// JSON response handling, retry, circuit-breaking and cost accounting.
type Generator struct {
	llm      llmclient.LLM
	breakers *circuit.Manager
	price    PricePerMillion
	backend  string
}

// New creates a Generator backed by llm, routed through the named circuit
// breaker and priced per price.
func New(llm llmclient.LLM, breakers *circuit.Manager, backend string, price PricePerMillion) *Generator {
	return &Generator{llm: llm, breakers: breakers, price: price, backend: backend}
}

// non4xxMarkers are substrings the Anthropic SDK's error messages carry
// for client errors that should not be retried (everything except 429).
var non4xxMarkers = []string{"400 ", "401 ", "403 ", "404 ", "422 "}

// retryableCompletionError retries rate-limit, connection and 5xx errors
// but short-circuits on other 4xx responses, per 4.M's retry policy.
func retryableCompletionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range non4xxMarkers {
		if strings.Contains(msg, marker) {
			return false
		}
	}
	return true
}

// Generate builds the prompt from synCtx, invokes the LLM with retry and
// circuit-breaking, parses the strict JSON response (repairing a fenced
// reply first), validates the causal chain, and returns a populated
// core.Synthesis. On parse failure a deterministic fallback skeleton is
// returned instead of an error.
func (g *Generator) Generate(ctx context.Context, cluster core.Cluster, synCtx ctxbuilder.SynthesisContext, personaPrefix string) (core.Synthesis, error) {
	hasHistory := synCtx.Historical != nil
	minWords := MinLengthBudget(len(cluster.Articles), len(synCtx.TopChunks), hasHistory, synCtx.IsUpdate)
	maxTokens := MaxTokenBudget(minWords)

	prompt := buildPrompt(cluster, synCtx, minWords, personaPrefix)

	var result llmclient.CompletionResult
	err := retry.Do(ctx, retry.DefaultLLMPolicy(), retryableCompletionError, func() error {
		out, cbErr := g.breakers.Do(ctx, g.backend, func() (any, error) {
			return g.llm.Complete(ctx, llmclient.CompletionRequest{
				Messages: []llmclient.Message{
					{Role: llmclient.RoleSystem, Content: systemPrompt},
					{Role: llmclient.RoleUser, Content: prompt},
				},
				Temperature:    0.7,
				MaxTokens:      maxTokens,
				ResponseFormat: "json",
			})
		})
		if cbErr != nil {
			return cbErr
		}
		result = out.(llmclient.CompletionResult)
		return nil
	})
	if err != nil {
		return fallbackSkeleton(cluster, synCtx), nil
	}

	resp, perr := parseResponse(result.Content)
	if perr != nil {
		return fallbackSkeleton(cluster, synCtx), nil
	}
	if verr := validate.Struct(resp); verr != nil {
		return fallbackSkeleton(cluster, synCtx), nil
	}

	syn := fromResponse(resp, cluster, synCtx)
	syn.GenerationCostUSD = Cost(result.Usage, g.price)
	return syn, nil
}

const systemPrompt = "You are a news synthesis engine. Respond with a single strict JSON object and no surrounding prose."

func buildPrompt(cluster core.Cluster, synCtx ctxbuilder.SynthesisContext, minWords int, personaPrefix string) string {
	var b strings.Builder
	if personaPrefix != "" {
		b.WriteString(personaPrefix)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Write a synthesis of at least %d words covering the following sources.\n\n", minWords)

	b.WriteString("SOURCE EXCERPTS:\n")
	for _, c := range synCtx.TopChunks {
		b.WriteString("- ")
		b.WriteString(c.Text)
		b.WriteString("\n")
	}

	if len(synCtx.Contradictions) > 0 {
		b.WriteString("\nCONTRADICTIONS TO ACKNOWLEDGE:\n")
		for _, c := range synCtx.Contradictions {
			fmt.Fprintf(&b, "- %s (%s)\n", c.Detail, c.Kind)
		}
	}

	if len(synCtx.KeyEntities.Persons)+len(synCtx.KeyEntities.Organizations)+len(synCtx.KeyEntities.Locations) > 0 {
		fmt.Fprintf(&b, "\nKEY ENTITIES: persons=%v orgs=%v locations=%v\n",
			synCtx.KeyEntities.Persons, synCtx.KeyEntities.Organizations, synCtx.KeyEntities.Locations)
	}

	if synCtx.Historical != nil {
		b.WriteString("\nHISTORICAL CONTEXT:\n")
		for _, ev := range synCtx.Historical.Chronology {
			fmt.Fprintf(&b, "- %s: %s\n", ev.Date.Format("2006-01-02"), ev.Title)
		}
		fmt.Fprintf(&b, "Narrative arc: %s. %s\n", synCtx.Historical.Arc, synCtx.Historical.ArcInstruction)
	}

	if synCtx.IsUpdate && synCtx.PriorSynthesisText != "" {
		b.WriteString("\nPRIOR SYNTHESIS (update this):\n")
		b.WriteString(synCtx.PriorSynthesisText)
		b.WriteString("\n")
	}

	if synCtx.Enrichment != nil {
		if synCtx.Enrichment.Research != nil {
			fmt.Fprintf(&b, "\nWEB RESEARCH: %s\n", synCtx.Enrichment.Research.Content)
		}
		if synCtx.Enrichment.Sentiment != nil {
			fmt.Fprintf(&b, "SOCIAL SENTIMENT: %s (%s)\n", synCtx.Enrichment.Sentiment.Summary, synCtx.Enrichment.Sentiment.Sentiment)
		}
	}

	b.WriteString("\nRespond with JSON: {title, introduction, body, keyPoints, analysis, causal_chain, predictions, sentiment, topic_intensity, readingTime}.")
	return b.String()
}

func fromResponse(resp synthesisResponse, cluster core.Cluster, synCtx ctxbuilder.SynthesisContext) core.Synthesis {
	edges := ResolveCausalChain(resp.CausalChain, resp.Body)

	var predictions []core.Prediction
	for _, p := range resp.Predictions {
		predictions = append(predictions, core.Prediction{
			Prediction:  p.Prediction,
			Probability: p.Probability,
			Type:        p.Type,
			Timeframe:   core.PredictionTimeframe(p.Timeframe),
			Rationale:   p.Rationale,
		})
	}

	enrichmentStatus := core.EnrichmentSkipped
	if synCtx.Enrichment != nil {
		enrichmentStatus = synCtx.Enrichment.Status
	}

	entityCount := len(synCtx.KeyEntities.Persons) + len(synCtx.KeyEntities.Organizations) + len(synCtx.KeyEntities.Locations)
	keyEntities := make([]string, 0, entityCount)
	keyEntities = append(keyEntities, synCtx.KeyEntities.Persons...)
	keyEntities = append(keyEntities, synCtx.KeyEntities.Organizations...)
	keyEntities = append(keyEntities, synCtx.KeyEntities.Locations...)

	arc := core.ArcEmerging
	if synCtx.Historical != nil {
		arc = synCtx.Historical.Arc
	}

	return core.Synthesis{
		Title:              resp.Title,
		Introduction:       resp.Introduction,
		Body:               resp.Body,
		Analysis:           resp.Analysis,
		KeyPoints:          resp.KeyPoints,
		NumSources:         len(cluster.Articles),
		ClusterID:          cluster.ID,
		ReadingTime:        resp.ReadingTime,
		CreatedAt:          time.Now().UTC(),
		NarrativeArc:       arc,
		HasContradictions:  len(synCtx.Contradictions) > 0,
		ContradictionCount: len(synCtx.Contradictions),
		KeyEntities:        keyEntities,
		CausalGraph:        core.CausalGraph{Edges: edges, Predictions: predictions},
		EnrichmentStatus:   enrichmentStatus,
		Sentiment:          core.Sentiment(resp.Sentiment),
		TopicIntensity:     core.TopicIntensity(resp.TopicIntensity),
	}
}

// fallbackSkeleton is the deterministic, non-raising response used when
// the LLM call or its JSON parse fails.
func fallbackSkeleton(cluster core.Cluster, synCtx ctxbuilder.SynthesisContext) core.Synthesis {
	title := "Untitled update"
	if len(cluster.Articles) > 0 {
		title = cluster.Articles[0].Title
	}
	return core.Synthesis{
		Title:            title,
		Introduction:     "This story could not be synthesized automatically.",
		Body:             "",
		NumSources:       len(cluster.Articles),
		ClusterID:        cluster.ID,
		CreatedAt:        time.Now().UTC(),
		NarrativeArc:     core.ArcEmerging,
		EnrichmentStatus: core.EnrichmentDisabled,
		Sentiment:        core.SentimentNeutral,
		TopicIntensity:   core.IntensityStandard,
		CausalGraph:      core.CausalGraph{FallbackNote: "generation failed; skeleton emitted"},
	}
}
