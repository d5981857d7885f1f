package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"novasynth/internal/broker"
	"novasynth/internal/core"
	"novasynth/internal/health"
	"novasynth/internal/kv"
)

type noopDiscovery struct{ scheduled []string }

func (d *noopDiscovery) ScheduleDiscovery(domain string) {
	d.scheduled = append(d.scheduled, domain)
}

func newTestScraper(t *testing.T) (*Scraper, *noopDiscovery) {
	t.Helper()
	store := health.NewStore(kv.NewLocal(), t.TempDir()+"/snapshot.json")
	b := broker.New()
	disc := &noopDiscovery{}
	cfg := DefaultConfig()
	return New(cfg, store, b, disc), disc
}

func TestScrapeSourceExtractsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		case "/":
			w.Write([]byte(`<html><body><a href="/article1">Story</a></body></html>`))
		case "/article1":
			w.Write([]byte(`<html><head><title>Big Story Title</title></head><body><article><p>` +
				strings.Repeat("word ", 40) + `</p></article></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s, _ := newTestScraper(t)
	src := core.Source{Domain: "example.test", Name: "Example", BaseURL: srv.URL + "/"}

	outcome := s.scrapeSource(context.Background(), src, 5)
	if outcome.status != "success" {
		t.Fatalf("expected success, got %s (%s)", outcome.status, outcome.errMsg)
	}
	if len(outcome.articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(outcome.articles))
	}
	if outcome.articles[0].Method != core.ExtractScrapeFull {
		t.Fatalf("expected scrape_full, got %s", outcome.articles[0].Method)
	}
}

func TestScrapeSourceMarksBlockedOnHardBlockStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		case "/":
			w.Write([]byte(`<html><body><a href="/a1">1</a><a href="/a2">2</a></body></html>`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	s, _ := newTestScraper(t)
	src := core.Source{Domain: "blocked.test", Name: "Blocked", BaseURL: srv.URL + "/"}

	outcome := s.scrapeSource(context.Background(), src, 5)
	if outcome.status != "blocked" {
		t.Fatalf("expected blocked, got %s", outcome.status)
	}
}

func TestScrapeSourceEmptyWhenNoLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		case "/":
			w.Write([]byte(`<html><body>no links here</body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s, disc := newTestScraper(t)
	src := core.Source{Domain: "empty.test", Name: "Empty", BaseURL: srv.URL + "/"}

	outcome := s.scrapeSource(context.Background(), src, 5)
	if outcome.status != "empty" {
		t.Fatalf("expected empty, got %s", outcome.status)
	}
	s.applyOutcome(context.Background(), outcome)
	s.applyOutcome(context.Background(), outcome)
	if len(disc.scheduled) != 1 {
		t.Fatalf("expected discovery scheduled once after 2 empty runs, got %d", len(disc.scheduled))
	}
}
