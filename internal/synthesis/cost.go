package synthesis

import "novasynth/internal/llmclient"

// PricePerMillion is a (input, output) USD price pair, quoted per million
// tokens, matching how model providers publish pricing.
type PricePerMillion struct {
	Input  float64
	Output float64
}

// Cost computes the USD cost of one completion call from its token usage.
func Cost(usage llmclient.Usage, price PricePerMillion) float64 {
	inputCost := float64(usage.PromptTokens) / 1_000_000 * price.Input
	outputCost := float64(usage.CompletionTokens) / 1_000_000 * price.Output
	return inputCost + outputCost
}
