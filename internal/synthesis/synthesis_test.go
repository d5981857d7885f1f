package synthesis

import (
	"context"
	"errors"
	"testing"

	"novasynth/internal/circuit"
	"novasynth/internal/core"
	"novasynth/internal/ctxbuilder"
	"novasynth/internal/llmclient"
)

type stubLLM struct {
	response string
	err      error
	calls    int
}

func (s *stubLLM) Complete(ctx context.Context, req llmclient.CompletionRequest) (llmclient.CompletionResult, error) {
	s.calls++
	if s.err != nil {
		return llmclient.CompletionResult{}, s.err
	}
	return llmclient.CompletionResult{Content: s.response, Usage: llmclient.Usage{PromptTokens: 100, CompletionTokens: 200}}, nil
}

func TestMinLengthBudgetFormula(t *testing.T) {
	if got := MinLengthBudget(3, 0, false, false); got != 600 {
		t.Fatalf("expected floor 600, got %d", got)
	}
	got := MinLengthBudget(5, 2, true, true)
	want := 450 + 80*(5-3) + 40*2 + 200 + 300
	if got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMaxTokenBudgetFloor(t *testing.T) {
	if got := MaxTokenBudget(1); got != 6000 {
		t.Fatalf("expected floor 6000, got %d", got)
	}
}

func TestStripFenceRemovesCodeBlock(t *testing.T) {
	raw := "```json\n{\"a\":1}\n```"
	got := stripFence(raw)
	if got != `{"a":1}` {
		t.Fatalf("unexpected stripped content: %q", got)
	}
}

func TestGenerateReturnsFallbackOnLLMError(t *testing.T) {
	llm := &stubLLM{err: errors.New("503 upstream unavailable")}
	breakers := circuit.NewManager(circuit.DefaultSettings())
	gen := New(llm, breakers, "llm", PricePerMillion{Input: 3, Output: 15})

	cluster := core.Cluster{ID: "c1", Articles: []core.Article{{ID: "a1", Title: "Test Headline"}}}
	synCtx := ctxbuilder.SynthesisContext{}

	syn, err := gen.Generate(context.Background(), cluster, synCtx, "")
	if err != nil {
		t.Fatalf("Generate returned error instead of fallback: %v", err)
	}
	if syn.EnrichmentStatus != core.EnrichmentDisabled {
		t.Fatalf("expected fallback skeleton, got %+v", syn)
	}
}

func TestGenerateParsesValidJSONResponse(t *testing.T) {
	response := `{"title":"T","introduction":"Intro","body":"Body text","keyPoints":["a"],"analysis":"An",` +
		`"causal_chain":[],"predictions":[],"sentiment":"neutral","topic_intensity":"standard","readingTime":3}`
	llm := &stubLLM{response: response}
	breakers := circuit.NewManager(circuit.DefaultSettings())
	gen := New(llm, breakers, "llm", PricePerMillion{Input: 3, Output: 15})

	cluster := core.Cluster{ID: "c1", Articles: []core.Article{{ID: "a1", Title: "Test Headline"}}}
	synCtx := ctxbuilder.SynthesisContext{}

	syn, err := gen.Generate(context.Background(), cluster, synCtx, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if syn.Title != "T" || syn.Body != "Body text" {
		t.Fatalf("unexpected synthesis: %+v", syn)
	}
	if syn.GenerationCostUSD <= 0 {
		t.Fatalf("expected nonzero generation cost")
	}
}

func TestResolveCausalChainFallsBackToPatternExtraction(t *testing.T) {
	body := "The strike led to widespread delays. Heavy rain caused flooding downtown."
	edges := ResolveCausalChain(nil, body)
	if len(edges) == 0 {
		t.Fatalf("expected pattern-extracted edges, got none")
	}
}

func TestValidateCausalEdgesDropsShortEntries(t *testing.T) {
	raw := []causalEdgeResponse{
		{Cause: "ab", Effect: "also short", Type: "causes"},
		{Cause: "a valid cause string", Effect: "a valid effect string", Type: "triggers"},
	}
	edges := validateCausalEdges(raw)
	if len(edges) != 1 {
		t.Fatalf("expected 1 surviving edge, got %d", len(edges))
	}
}
