package llmclient

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// SocialSentimentHTTP implements SocialSentiment against an HTTP
// social-listening backend, the same shape as WebResearchHTTP.
type SocialSentimentHTTP struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

func NewSocialSentimentHTTP(baseURL, apiKey string) *SocialSentimentHTTP {
	return &SocialSentimentHTTP{
		client:  resty.New(),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type sentimentResponseBody struct {
	Summary          string   `json:"summary"`
	Sentiment        string   `json:"sentiment"`
	KeyReactions     []string `json:"key_reactions"`
	TrendingHashtags []string `json:"trending_hashtags"`
}

// Analyze implements the social-sentiment contract's analyze(topic, max_tokens).
func (s *SocialSentimentHTTP) Analyze(ctx context.Context, topic string, maxTokens int) (SentimentResult, error) {
	var body sentimentResponseBody
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.apiKey).
		SetBody(map[string]any{"topic": topic, "max_tokens": maxTokens}).
		SetResult(&body).
		Post(s.baseURL + "/analyze")
	if err != nil {
		return SentimentResult{}, fmt.Errorf("social sentiment analyze: %w", err)
	}
	if resp.IsError() {
		return SentimentResult{}, fmt.Errorf("social sentiment analyze: status %d", resp.StatusCode())
	}
	return SentimentResult{
		Summary:          body.Summary,
		Sentiment:        body.Sentiment,
		KeyReactions:     body.KeyReactions,
		TrendingHashtags: body.TrendingHashtags,
	}, nil
}
