package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"novasynth/internal/broker"
	"novasynth/internal/health"
	"novasynth/internal/kv"
	"novasynth/internal/llmclient"
	"novasynth/internal/registry"
)

type stubLLM struct {
	responses []string
	calls     int
}

func (s *stubLLM) Complete(ctx context.Context, req llmclient.CompletionRequest) (llmclient.CompletionResult, error) {
	resp := s.responses[s.calls%len(s.responses)]
	s.calls++
	return llmclient.CompletionResult{Content: resp}, nil
}

func newTestCandidateServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("User-agent: *\nDisallow:\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		links := ""
		for i := 0; i < 12; i++ {
			links += `<a href="/article">link</a>`
		}
		w.Write([]byte(`<html><body><article>` + links + `</article></body></html>`))
	})
	return httptest.NewServer(mux)
}

func TestDiscoverPersistsFirstValidCandidate(t *testing.T) {
	srv := newTestCandidateServer()
	defer srv.Close()

	suggestionsJSON := `[{"domain":"example.test","base_url":"` + srv.URL + `","name":"Example Daily"}]`
	selectorsJSON := `{"article_link":".link","title":"h1","body":".body"}`

	llm := &stubLLM{responses: []string{suggestionsJSON, selectorsJSON}}
	reg := registry.New(nil)
	b := broker.New()
	hs := health.NewStore(kv.NewLocal(), "")

	d := New(reg, hs, b, llm)
	d.Discover(context.Background(), "blocked.test")

	if _, ok := reg.Get("example.test"); !ok {
		t.Fatalf("expected discovered source to be added to registry")
	}

	count, err := hs.DiscoveredCount(context.Background())
	if err != nil {
		t.Fatalf("DiscoveredCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected discovered count 1, got %d", count)
	}
}

func TestDiscoverAbandonsOnMalformedSuggestions(t *testing.T) {
	llm := &stubLLM{responses: []string{"not json"}}
	reg := registry.New(nil)
	b := broker.New()
	hs := health.NewStore(kv.NewLocal(), "")

	d := New(reg, hs, b, llm)
	d.Discover(context.Background(), "blocked.test")

	count, err := hs.DiscoveredCount(context.Background())
	if err != nil {
		t.Fatalf("DiscoveredCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no discovered source persisted, got %d", count)
	}
}

func TestDiscoverRespectsAttemptCapPerDomain(t *testing.T) {
	llm := &stubLLM{responses: []string{"not json"}}
	reg := registry.New(nil)
	b := broker.New()
	hs := health.NewStore(kv.NewLocal(), "")
	d := New(reg, hs, b, llm)

	for i := 0; i < MaxAttemptsPerDomain+2; i++ {
		d.Discover(context.Background(), "blocked.test")
	}
	if d.attempts["blocked.test"] != MaxAttemptsPerDomain {
		t.Fatalf("expected attempts capped at %d, got %d", MaxAttemptsPerDomain, d.attempts["blocked.test"])
	}
}

func TestInferMetadataReadsKeywordsAndTLD(t *testing.T) {
	cat, lang, region := inferMetadata("letechsport.fr")
	if lang != "fr" || region != "FR" {
		t.Fatalf("expected fr/FR for .fr TLD, got %s/%s", lang, region)
	}
	if cat != "sports" && cat != "technology" {
		t.Fatalf("expected a keyword-derived category, got %s", cat)
	}
}
