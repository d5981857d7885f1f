package lock

import (
	"context"
	"testing"

	"novasynth/internal/kv"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := New(kv.NewLocal(), 0)

	token, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := l.Acquire(ctx); err != ErrPipelineBusy {
		t.Fatalf("expected ErrPipelineBusy on concurrent acquire, got %v", err)
	}

	if err := l.Release(ctx, token); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if _, err := l.Acquire(ctx); err != nil {
		t.Fatalf("expected reacquire to succeed after release, got %v", err)
	}
}

func TestReleaseWrongTokenDoesNotUnlock(t *testing.T) {
	ctx := context.Background()
	l := New(kv.NewLocal(), 0)

	_, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if err := l.Release(ctx, "not-the-owner"); err != nil {
		t.Fatalf("Release with wrong token should not error: %v", err)
	}

	if _, err := l.Acquire(ctx); err != ErrPipelineBusy {
		t.Fatalf("lock should still be held after a mismatched release, got %v", err)
	}
}
