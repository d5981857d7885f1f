package llmclient

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultEmbeddingModel and DefaultEmbeddingDimensions match the
// Gemini embedding backend: gemini-embedding-001 truncated to 768
// dimensions via Matryoshka, the dimension every collection in
// internal/vectorstore is sized for.
const (
	DefaultEmbeddingModel      = "gemini-embedding-001"
	DefaultEmbeddingDimensions = int32(768)
	maxEmbeddingInputChars     = 8000
)

// GeminiEmbedder implements Embedder against the Gemini embedding API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	dims   int32
}

// NewGeminiEmbedder builds an embedder. An empty model falls back to
// DefaultEmbeddingModel.
func NewGeminiEmbedder(apiKey, model string) (*GeminiEmbedder, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w", err)
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &GeminiEmbedder{client: client, model: model, dims: DefaultEmbeddingDimensions}, nil
}

// Embed returns a 768-dimension embedding for text, truncating long
// input the same way the synthesis/summary embedder did.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if len(text) > maxEmbeddingInputChars {
		text = text[:maxEmbeddingInputChars]
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: text}},
		Role:  "user",
	}}
	dims := e.dims
	config := &genai.EmbedContentConfig{OutputDimensionality: &dims}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("gemini embedding: no values returned")
	}

	values := resp.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}
