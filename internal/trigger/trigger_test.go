package trigger

import (
	"context"
	"testing"

	"novasynth/internal/broker"
	"novasynth/internal/clustering"
	"novasynth/internal/core"
	"novasynth/internal/discovery"
	"novasynth/internal/embedbatch"
	"novasynth/internal/health"
	"novasynth/internal/kv"
	"novasynth/internal/lock"
	"novasynth/internal/persistsel"
	"novasynth/internal/pipeline"
	"novasynth/internal/registry"
	"novasynth/internal/scraper"
	"novasynth/internal/vectorstore"
)

type noopEmbedder struct{}

func (noopEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{0, 0, 0}, nil
}

// newTestTrigger wires a Pipeline with an empty registry, so a simulated
// run completes immediately: no sources to scrape, no articles to embed
// or cluster. Enough stage collaborators are wired to avoid nil-pointer
// panics inside the run's goroutine (scraper, embedder, persistence
// selector, clustering), since Start() races against the background run.
func newTestTrigger(t *testing.T, operatorToken string) *Trigger {
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
		WithVectorStore(vectorstore.NewMemory()).
		Build()

	return New(p, reg, healthStore, disc, b, operatorToken)
}

func TestStartRequiresOperatorToken(t *testing.T) {
	tr := newTestTrigger(t, "")
	if err := tr.Start("anything", pipeline.RunRequest{Mode: pipeline.ModeSimulation}); err != ErrTokenNotConfigured {
		t.Fatalf("expected ErrTokenNotConfigured, got %v", err)
	}
}

func TestStartRejectsWrongToken(t *testing.T) {
	tr := newTestTrigger(t, "secret")
	if err := tr.Start("wrong", pipeline.RunRequest{Mode: pipeline.ModeSimulation}); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestStartSucceedsWithCorrectToken(t *testing.T) {
	tr := newTestTrigger(t, "secret")
	if err := tr.Start("secret", pipeline.RunRequest{Mode: pipeline.ModeSimulation}); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestSecondStartReturnsPipelineBusy(t *testing.T) {
	tr := newTestTrigger(t, "secret")
	if err := tr.Start("secret", pipeline.RunRequest{Mode: pipeline.ModeSimulation}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := tr.Start("secret", pipeline.RunRequest{Mode: pipeline.ModeSimulation}); err != lock.ErrPipelineBusy {
		t.Fatalf("expected lock.ErrPipelineBusy on concurrent start, got %v", err)
	}
}

func TestStatusAndLogsArePublic(t *testing.T) {
	tr := newTestTrigger(t, "")
	if got := tr.Status().Status; got != pipeline.StatusIdle {
		t.Fatalf("expected idle status before any run, got %v", got)
	}
	if logs := tr.Logs(10, 0); logs == nil && len(logs) != 0 {
		t.Fatalf("Logs should return an empty, non-nil-panicking slice")
	}
}

func TestStopWithoutAuthorizationFails(t *testing.T) {
	tr := newTestTrigger(t, "secret")
	if err := tr.Stop("wrong"); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestBlacklistAndClearRoundTrip(t *testing.T) {
	ctx := context.Background()
	tr := newTestTrigger(t, "secret")
	tr.registry.Add(core.Source{Domain: "bad.example", Name: "Bad Example"})

	if err := tr.Blacklist(ctx, "secret", "bad.example", "HTTP blocked"); err != nil {
		t.Fatalf("Blacklist: %v", err)
	}
	report, err := tr.HealthReport(ctx)
	if err != nil {
		t.Fatalf("HealthReport: %v", err)
	}
	found := false
	for _, h := range report.Blacklisted {
		if h.Domain == "bad.example" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bad.example in blacklisted bucket, got %+v", report)
	}

	if err := tr.ClearBlacklist(ctx, "secret", "bad.example"); err != nil {
		t.Fatalf("ClearBlacklist: %v", err)
	}
}

func TestBlacklistRequiresAuthorization(t *testing.T) {
	ctx := context.Background()
	tr := newTestTrigger(t, "secret")
	if err := tr.Blacklist(ctx, "", "bad.example", "reason"); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
