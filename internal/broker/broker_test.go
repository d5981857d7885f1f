package broker

import (
	"sync"
	"testing"
	"time"
)

func TestPublishFansOutToSubscribers(t *testing.T) {
	b := New()
	var mu sync.Mutex
	var got []Event

	sub := b.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})
	defer sub.Unsubscribe()

	b.Progress(50, "scraping", "in_progress")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Kind != EventProgress || got[0].Percent != 50 {
		t.Fatalf("expected one progress event, got %+v", got)
	}
}

func TestLogRingBufferRetainsLastN(t *testing.T) {
	b := New()
	for i := 0; i < ringSize+10; i++ {
		b.Log(LevelInfo, "msg", "", nil)
	}
	logs := b.Logs(0, 0)
	if len(logs) != ringSize {
		t.Fatalf("expected ring buffer capped at %d, got %d", ringSize, len(logs))
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	var mu sync.Mutex
	count := 0

	sub := b.Subscribe(func(ev Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	sub.Unsubscribe()

	b.Progress(1, "x", "y")
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("expected no events after unsubscribe, got %d", count)
	}
}
