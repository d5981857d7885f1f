package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"novasynth/internal/broker"
	"novasynth/internal/clustering"
	"novasynth/internal/config"
	"novasynth/internal/discovery"
	"novasynth/internal/embedbatch"
	"novasynth/internal/health"
	"novasynth/internal/kv"
	"novasynth/internal/lock"
	"novasynth/internal/persistsel"
	"novasynth/internal/pipeline"
	"novasynth/internal/registry"
	"novasynth/internal/scraper"
	"novasynth/internal/trigger"
	"novasynth/internal/vectorstore"
)

type noopEmbedder struct{}

func (noopEmbedder) Embed(context.Context, string) ([]float64, error) { return []float64{0}, nil }

func newTestServer(t *testing.T, operatorToken string) *httptest.Server {
	t.Helper()
	store := kv.NewLocal()
	reg := registry.New(nil)
	healthStore := health.NewStore(store, "")
	b := broker.New()
	disc := discovery.New(reg, healthStore, b, nil)

	p := pipeline.NewBuilder().
		WithRegistry(reg).
		WithHealth(healthStore).
		WithLock(lock.New(store, 0)).
		WithBroker(b).
		WithScraper(scraper.New(scraper.DefaultConfig(), healthStore, b, disc)).
		WithEmbedder(embedbatch.New(noopEmbedder{}, b, 20)).
		WithPersistSel(persistsel.New(vectorstore.NewMemory())).
		WithClustering(clustering.New(clustering.DefaultConfig())).
		Build()

	trig := trigger.New(p, reg, healthStore, disc, b, operatorToken)
	router := New(trig, config.Server{Host: "127.0.0.1", Port: 0})
	return httptest.NewServer(router.Mux())
}

func TestHealthEndpointIsPublic(t *testing.T) {
	srv := newTestServer(t, "secret")
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStartWithoutTokenConfiguredReturns503(t *testing.T) {
	srv := newTestServer(t, "")
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/pipeline/start", "application/json", bytes.NewReader([]byte(`{"mode":"simulation"}`)))
	if err != nil {
		t.Fatalf("POST /api/pipeline/start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestStartWithWrongTokenReturns401(t *testing.T) {
	srv := newTestServer(t, "secret")
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/pipeline/start", bytes.NewReader([]byte(`{"mode":"simulation"}`)))
	req.Header.Set("X-Operator-Token", "wrong")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestStartTwiceReturns409(t *testing.T) {
	srv := newTestServer(t, "secret")
	defer srv.Close()

	do := func() int {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/pipeline/start", bytes.NewReader([]byte(`{"mode":"simulation"}`)))
		req.Header.Set("X-Operator-Token", "secret")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		defer resp.Body.Close()
		return resp.StatusCode
	}

	if status := do(); status != http.StatusAccepted {
		t.Fatalf("expected 202 on first start, got %d", status)
	}
	if status := do(); status != http.StatusConflict {
		t.Fatalf("expected 409 on second start, got %d", status)
	}
}

func TestStatusEndpointIsPublic(t *testing.T) {
	srv := newTestServer(t, "secret")
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/pipeline/status")
	if err != nil {
		t.Fatalf("GET /api/pipeline/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result pipeline.RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if result.Status != pipeline.StatusIdle {
		t.Fatalf("expected idle status, got %v", result.Status)
	}
}

func TestBlacklistRequiresBody(t *testing.T) {
	srv := newTestServer(t, "secret")
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/blacklist", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Operator-Token", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing domain, got %d", resp.StatusCode)
	}
}
