package llmclient

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is the synthesis backend's default chat model.
const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

// Anthropic is the LLM backend used for synthesis generation (4.M). It
// wraps the same single-client, single-model shape the Gemini client
// uses, trading streaming support for none (the core never streams).
type Anthropic struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropic builds an Anthropic-backed LLM. apiKey and model both fall
// back: an empty apiKey lets the SDK read ANTHROPIC_API_KEY itself, and
// an empty model selects DefaultAnthropicModel.
func NewAnthropic(apiKey, model string) (*Anthropic, error) {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)

	m := anthropic.Model(model)
	if model == "" {
		m = DefaultAnthropicModel
	}
	return &Anthropic{client: &client, model: m}, nil
}

// Complete implements LLM.Complete against the Messages API.
func (a *Anthropic) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	params := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   int64(maxTokensOrDefault(req.MaxTokens)),
		Temperature: anthropic.Float(float64(req.Temperature)),
	}

	var system string
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = system + m.Content
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	params.Messages = messages

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("anthropic completion: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return CompletionResult{}, fmt.Errorf("anthropic completion: empty response")
	}

	return CompletionResult{
		Content: content,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

func maxTokensOrDefault(n int32) int32 {
	if n <= 0 {
		return 4096
	}
	return n
}
