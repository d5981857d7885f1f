// Package lock implements the Single-Run Lock (4.C): a distributed mutex
// as a SET-IF-ABSENT with TTL in the fast key-value store, falling back to
// a process-local boolean when the fast store is unavailable.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"novasynth/internal/kv"
)

// ErrPipelineBusy is returned when a run is already in flight.
var ErrPipelineBusy = errors.New("lock: pipeline already running")

const key = "pipeline:run:lock"

// DefaultTTL is the lock's default lease, matching 4.C.
const DefaultTTL = time.Hour

// Lock is the single-run mutex. It degrades to a process-local boolean
// (guarded by localMu) when the backing kv.Store is unreachable, per
// 7. Error handling design's "fast key-value store down" rule.
type Lock struct {
	store kv.Store
	ttl   time.Duration

	localMu    sync.Mutex
	localHeld  bool
	ownerToken string
	degraded   bool
}

// New creates a Lock backed by store with the given TTL (DefaultTTL if 0).
func New(store kv.Store, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lock{store: store, ttl: ttl}
}

// Acquire attempts to take the lock, returning a release token. It returns
// ErrPipelineBusy if another run holds it.
func (l *Lock) Acquire(ctx context.Context) (string, error) {
	token := uuid.NewString()

	if err := l.store.Ping(ctx); err != nil {
		return l.acquireLocal(token)
	}

	ok, err := l.store.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return l.acquireLocal(token)
	}
	if !ok {
		return "", ErrPipelineBusy
	}
	return token, nil
}

func (l *Lock) acquireLocal(token string) (string, error) {
	l.localMu.Lock()
	defer l.localMu.Unlock()
	if l.localHeld {
		return "", ErrPipelineBusy
	}
	l.localHeld = true
	l.ownerToken = token
	l.degraded = true
	return token, nil
}

// Release performs the compare-and-delete release: only the holder of
// token can release the lock.
func (l *Lock) Release(ctx context.Context, token string) error {
	l.localMu.Lock()
	degraded := l.degraded
	l.localMu.Unlock()

	if degraded {
		l.localMu.Lock()
		defer l.localMu.Unlock()
		if l.ownerToken == token {
			l.localHeld = false
			l.ownerToken = ""
			l.degraded = false
		}
		return nil
	}

	_, err := l.store.CompareAndDelete(ctx, key, token)
	return err
}
