// Package embedbatch implements the embedding batcher (4.H): fixed-size
// batches, a progress event per batch, cancellation honoured only
// between batches (never mid-batch).
package embedbatch

import (
	"context"
	"fmt"

	"novasynth/internal/broker"
	"novasynth/internal/core"
	"novasynth/internal/llmclient"
)

// DefaultBatchSize is the number of articles embedded per call.
const DefaultBatchSize = 20

// Batcher encodes articles' (title + body) text into embeddings.
type Batcher struct {
	embedder  llmclient.Embedder
	broker    *broker.Broker
	batchSize int
}

func New(embedder llmclient.Embedder, b *broker.Broker, batchSize int) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Batcher{embedder: embedder, broker: b, batchSize: batchSize}
}

// EmbedArticles populates Embedding on each article in place and
// returns the same slice. Cancellation is checked before each batch;
// a batch already in flight always finishes.
func (b *Batcher) EmbedArticles(ctx context.Context, articles []core.Article) ([]core.Article, error) {
	total := (len(articles) + b.batchSize - 1) / b.batchSize
	for batchNum, start := 1, 0; start < len(articles); batchNum, start = batchNum+1, start+b.batchSize {
		select {
		case <-ctx.Done():
			return articles, ctx.Err()
		default:
		}

		end := start + b.batchSize
		if end > len(articles) {
			end = len(articles)
		}

		b.broker.Progress(0, fmt.Sprintf("embeddings (%d/%d)", batchNum, total), "in_progress")

		for i := start; i < end; i++ {
			vec, err := b.embedder.Embed(ctx, articles[i].Title+"\n\n"+articles[i].Body)
			if err != nil {
				return articles, fmt.Errorf("embed article %s: %w", articles[i].ID, err)
			}
			articles[i].Embedding = vec
		}
	}
	return articles, nil
}

// EmbedTexts is the same batching strategy applied to arbitrary text,
// used by clustering (4.I) to embed past syntheses alongside articles.
func (b *Batcher) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	total := (len(texts) + b.batchSize - 1) / b.batchSize
	for batchNum, start := 1, 0; start < len(texts); batchNum, start = batchNum+1, start+b.batchSize {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		b.broker.Progress(0, fmt.Sprintf("embeddings (%d/%d)", batchNum, total), "in_progress")

		for i := start; i < end; i++ {
			vec, err := b.embedder.Embed(ctx, texts[i])
			if err != nil {
				return out, fmt.Errorf("embed text %d: %w", i, err)
			}
			out[i] = vec
		}
	}
	return out, nil
}
