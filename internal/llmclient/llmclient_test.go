package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebResearchHTTPSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":   "summary text",
			"citations": []map[string]string{{"url": "https://example.com", "title": "Example"}},
		})
	}))
	defer srv.Close()

	client := NewWebResearchHTTP(srv.URL, "token")
	result, err := client.Search(context.Background(), "query", 500)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Content != "summary text" || len(result.Citations) != 1 || result.Citations[0].URL != "https://example.com" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestWebResearchHTTPFactCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "unverified"})
	}))
	defer srv.Close()

	client := NewWebResearchHTTP(srv.URL, "token")
	result, err := client.FactCheck(context.Background(), "claim text")
	if err != nil {
		t.Fatalf("FactCheck: %v", err)
	}
	if result.Result != "unverified" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSocialSentimentHTTPAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"summary":           "mixed reaction",
			"sentiment":         "neutral",
			"key_reactions":     []string{"skeptical", "curious"},
			"trending_hashtags": []string{"#topic"},
		})
	}))
	defer srv.Close()

	client := NewSocialSentimentHTTP(srv.URL, "token")
	result, err := client.Analyze(context.Background(), "topic", 300)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Sentiment != "neutral" || len(result.KeyReactions) != 2 || len(result.TrendingHashtags) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
