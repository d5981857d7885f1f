package embedbatch

import (
	"context"
	"errors"
	"testing"

	"novasynth/internal/broker"
	"novasynth/internal/core"
)

type stubEmbedder struct {
	calls int
	fail  int // fail after this many calls, 0 = never
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	s.calls++
	if s.fail > 0 && s.calls > s.fail {
		return nil, errors.New("embedding backend unavailable")
	}
	return []float64{float64(len(text))}, nil
}

func TestEmbedArticlesBatchesAndPopulatesEmbeddings(t *testing.T) {
	embedder := &stubEmbedder{}
	b := New(embedder, broker.New(), 2)

	articles := make([]core.Article, 5)
	for i := range articles {
		articles[i] = core.Article{ID: string(rune('a' + i)), Title: "t", Body: "b"}
	}

	out, err := b.EmbedArticles(context.Background(), articles)
	if err != nil {
		t.Fatalf("EmbedArticles: %v", err)
	}
	for _, a := range out {
		if a.Embedding == nil {
			t.Fatalf("expected embedding to be set on %s", a.ID)
		}
	}
	if embedder.calls != 5 {
		t.Fatalf("expected 5 embed calls, got %d", embedder.calls)
	}
}

func TestEmbedArticlesStopsBetweenBatchesOnCancellation(t *testing.T) {
	embedder := &stubEmbedder{}
	b := New(embedder, broker.New(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	articles := []core.Article{{ID: "a"}, {ID: "b"}}
	_, err := b.EmbedArticles(ctx, articles)
	if err == nil {
		t.Fatalf("expected context cancellation error")
	}
}
