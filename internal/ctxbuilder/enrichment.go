package ctxbuilder

import (
	"context"
	"strings"
	"sync"

	"novasynth/internal/circuit"
	"novasynth/internal/core"
	"novasynth/internal/llmclient"
	"novasynth/internal/retry"
)

// GateReason is one of 4.L step 6's fixed gating reasons.
type GateReason string

const (
	ReasonScrapeSuccess     GateReason = "scrape_success"
	ReasonMinorTopic        GateReason = "minor_topic"
	ReasonUrgentBreaking    GateReason = "urgent_breaking"
	ReasonUrgentHot         GateReason = "urgent_hot"
	ReasonTier1ScrapeFailed GateReason = "tier1_scrape_failed"
	ReasonCostControl       GateReason = "cost_control"
)

var breakingKeywords = []string{
	"breaking", "urgent", "alert", "live update", "developing story",
	"dernière minute", "urgence", "en direct",
}

// IsBreakingNews reports whether any breaking-news keyword appears in text.
func IsBreakingNews(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range breakingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// GateInput is what the gating decision needs from the cluster under build.
type GateInput struct {
	ScrapeSucceeded bool
	MinTier         core.SourceTier
	IsBreaking      bool
	TopicIntensity  string // "breaking", "hot", "developing", "standard"
	CostControlled  bool   // true when the operator has capped enrichment spend
}

// ShouldEnrich implements 4.L step 6's decision function.
func ShouldEnrich(in GateInput) (bool, GateReason) {
	if in.CostControlled {
		return false, ReasonCostControl
	}
	if in.IsBreaking {
		return true, ReasonUrgentBreaking
	}
	if in.TopicIntensity == "hot" {
		return true, ReasonUrgentHot
	}
	if in.MinTier == core.TierMajor && !in.ScrapeSucceeded {
		return true, ReasonTier1ScrapeFailed
	}
	if in.MinTier == core.TierMinor {
		return false, ReasonMinorTopic
	}
	if in.ScrapeSucceeded {
		return false, ReasonScrapeSuccess
	}
	return true, ReasonTier1ScrapeFailed
}

// EnrichmentResult carries both external calls' outputs, plus the overall
// status to record on the synthesis.
type EnrichmentResult struct {
	Status    core.EnrichmentStatus
	Research  *llmclient.SearchResult
	Sentiment *llmclient.SentimentResult
}

func retryableHTTPStatus(err error) bool {
	return err != nil
}

// Enrich fans out the web-research and social-sentiment calls in parallel,
// each wrapped by its own circuit breaker and retried with backoff. Either
// call failing degrades the result to "partial" rather than aborting.
func Enrich(ctx context.Context, breakers *circuit.Manager, research llmclient.WebResearch, sentiment llmclient.SocialSentiment, query, topic string) EnrichmentResult {
	var wg sync.WaitGroup
	var researchResult *llmclient.SearchResult
	var sentimentResult *llmclient.SentimentResult
	var researchErr, sentimentErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		err := retry.Do(ctx, retry.DefaultEnrichmentPolicy(), retryableHTTPStatus, func() error {
			out, cbErr := breakers.Do(ctx, "web_research", func() (any, error) {
				return research.Search(ctx, query, 1024)
			})
			if cbErr != nil {
				return cbErr
			}
			r := out.(llmclient.SearchResult)
			researchResult = &r
			return nil
		})
		researchErr = err
	}()
	go func() {
		defer wg.Done()
		err := retry.Do(ctx, retry.DefaultEnrichmentPolicy(), retryableHTTPStatus, func() error {
			out, cbErr := breakers.Do(ctx, "social_sentiment", func() (any, error) {
				return sentiment.Analyze(ctx, topic, 512)
			})
			if cbErr != nil {
				return cbErr
			}
			s := out.(llmclient.SentimentResult)
			sentimentResult = &s
			return nil
		})
		sentimentErr = err
	}()
	wg.Wait()

	status := core.EnrichmentOK
	if researchErr != nil || sentimentErr != nil {
		status = core.EnrichmentPartial
	}
	return EnrichmentResult{Status: status, Research: researchResult, Sentiment: sentimentResult}
}
