package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"novasynth/internal/core"
	"novasynth/internal/kv"
)

func TestRecordFailureTransitionsToDegradedThenBlocked(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kv.NewLocal(), "")

	for i := 0; i < 3; i++ {
		if err := store.RecordFailure(ctx, "bad.example", "timeout"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	h, _ := store.Get(ctx, "bad.example")
	if h.Status != core.HealthDegraded {
		t.Fatalf("expected degraded after 3/3 failures, got %s", h.Status)
	}

	for i := 0; i < 5; i++ {
		if err := store.RecordFailure(ctx, "bad.example", "timeout"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	h, _ = store.Get(ctx, "bad.example")
	if h.Status != core.HealthBlocked {
		t.Fatalf("expected blocked after repeated failures with zero successes, got %s", h.Status)
	}
}

func TestRecordSuccessRecoversFromDegraded(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kv.NewLocal(), "")

	for i := 0; i < 4; i++ {
		_ = store.RecordFailure(ctx, "flaky.example", "503")
	}
	h, _ := store.Get(ctx, "flaky.example")
	if h.Status != core.HealthDegraded {
		t.Fatalf("setup: expected degraded, got %s", h.Status)
	}

	for i := 0; i < 10; i++ {
		_ = store.RecordSuccess(ctx, "flaky.example")
	}
	h, _ = store.Get(ctx, "flaky.example")
	if h.Status != core.HealthActive {
		t.Fatalf("expected active after recovery, got %s (rate=%.2f)", h.Status, h.SuccessRate())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	store := NewStore(kv.NewLocal(), path)
	_ = store.RecordSuccess(ctx, "good.example")
	_ = store.RecordFailure(ctx, "bad.example", "boom")
	_ = store.Blacklist(ctx, "blocked.example", "HTTP blocked")

	if err := store.Shutdown(ctx, []string{"good.example", "bad.example", "blocked.example"}); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected snapshot file to exist: %v", err)
	}

	reloaded := NewStore(kv.NewLocal(), path)
	snap, err := reloaded.readSnapshot()
	if err != nil {
		t.Fatalf("readSnapshot: %v", err)
	}
	if len(snap.Sources) != 3 {
		t.Fatalf("expected 3 sources in snapshot, got %d", len(snap.Sources))
	}
	if len(snap.Blacklist) != 1 || snap.Blacklist[0] != "blocked.example" {
		t.Fatalf("expected blacklist=[blocked.example], got %v", snap.Blacklist)
	}
}
