package llmclient

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// WebResearchHTTP implements WebResearch against an HTTP research
// backend (a hosted search+fact-check API). The endpoint and key are
// operator-supplied; this client only shapes the request/response.
type WebResearchHTTP struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

func NewWebResearchHTTP(baseURL, apiKey string) *WebResearchHTTP {
	return &WebResearchHTTP{
		client:  resty.New(),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type searchResponseBody struct {
	Content   string `json:"content"`
	Citations []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"citations"`
}

// Search implements the web-research contract's search(query, max_tokens).
func (w *WebResearchHTTP) Search(ctx context.Context, query string, maxTokens int) (SearchResult, error) {
	var body searchResponseBody
	resp, err := w.client.R().
		SetContext(ctx).
		SetAuthToken(w.apiKey).
		SetBody(map[string]any{"query": query, "max_tokens": maxTokens}).
		SetResult(&body).
		Post(w.baseURL + "/search")
	if err != nil {
		return SearchResult{}, fmt.Errorf("web research search: %w", err)
	}
	if resp.IsError() {
		return SearchResult{}, fmt.Errorf("web research search: status %d", resp.StatusCode())
	}

	citations := make([]Citation, 0, len(body.Citations))
	for _, c := range body.Citations {
		citations = append(citations, Citation{URL: c.URL, Title: c.Title})
	}
	return SearchResult{Content: body.Content, Citations: citations}, nil
}

type factCheckResponseBody struct {
	Result string `json:"result"`
}

// FactCheck implements the web-research contract's fact_check(claim).
func (w *WebResearchHTTP) FactCheck(ctx context.Context, claim string) (FactCheckResult, error) {
	var body factCheckResponseBody
	resp, err := w.client.R().
		SetContext(ctx).
		SetAuthToken(w.apiKey).
		SetBody(map[string]any{"claim": claim}).
		SetResult(&body).
		Post(w.baseURL + "/fact_check")
	if err != nil {
		return FactCheckResult{}, fmt.Errorf("web research fact_check: %w", err)
	}
	if resp.IsError() {
		return FactCheckResult{}, fmt.Errorf("web research fact_check: status %d", resp.StatusCode())
	}
	return FactCheckResult{Result: body.Result}, nil
}
