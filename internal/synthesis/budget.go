// Package synthesis wraps a chat-style LLM backend to turn a cluster's
// assembled context (internal/ctxbuilder) into a structured Synthesis
// (4.M): dynamic length budgeting, strict JSON response parsing with
// repair-on-fence, retry + circuit-breaker wrapped calls, causal-chain
// validation with a pattern-based fallback extractor, and cost accounting.
package synthesis

// MinLengthBudget implements 4.M's dynamic length formula.
func MinLengthBudget(numSources, chunks int, hasHistory, isUpdate bool) int {
	budget := 450 + 80*(numSources-3) + 40*chunks
	if hasHistory {
		budget += 200
	}
	if isUpdate {
		budget += 300
	}
	if budget < 600 {
		budget = 600
	}
	return budget
}

// MaxTokenBudget implements 4.M's approximate token ceiling, floored at 6000.
func MaxTokenBudget(minWords int) int32 {
	tokens := (minWords+400)*7 + 2000
	if tokens < 6000 {
		tokens = 6000
	}
	return int32(tokens)
}
