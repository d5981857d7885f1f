// Package llmclient holds the external-collaborator contracts the core
// depends on (6. External interfaces): chat completion, embeddings,
// web research and social sentiment. Each contract has one real backend
// and is exercised through the retry (internal/retry) and circuit
// (internal/circuit) packages rather than being called directly.
package llmclient

import "context"

// Role identifies the speaker of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    Role
	Content string
}

// Usage reports token accounting for a completion, used for cost
// estimation in 4.M.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// CompletionRequest mirrors the LLM contract: complete(messages,
// temperature, max_tokens, response_format?).
type CompletionRequest struct {
	Messages       []Message
	Temperature    float32
	MaxTokens      int32
	ResponseFormat string // "", or "json" to request a JSON-only reply
}

// CompletionResult is the contract's { content, usage } response.
type CompletionResult struct {
	Content string
	Usage   Usage
}

// LLM is the chat-completion contract. The core never depends on
// streaming.
type LLM interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// Embedder produces a fixed-dimension vector for a piece of text, used
// by dedup (4.G), clustering (4.I) and knowledge hub (4.P).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Citation is one source backing a web-research answer.
type Citation struct {
	URL   string
	Title string
}

// SearchResult is the web-research contract's search() response.
type SearchResult struct {
	Content   string
	Citations []Citation
}

// FactCheckResult is the web-research contract's fact_check() response.
type FactCheckResult struct {
	Result string
}

// WebResearch is the web-research contract: search(query, max_tokens)
// and fact_check(claim).
type WebResearch interface {
	Search(ctx context.Context, query string, maxTokens int) (SearchResult, error)
	FactCheck(ctx context.Context, claim string) (FactCheckResult, error)
}

// SentimentResult is the social-sentiment contract's analyze() response.
type SentimentResult struct {
	Summary          string
	Sentiment        string
	KeyReactions     []string
	TrendingHashtags []string
}

// SocialSentiment is the social-sentiment contract: analyze(topic,
// max_tokens).
type SocialSentiment interface {
	Analyze(ctx context.Context, topic string, maxTokens int) (SentimentResult, error)
}
