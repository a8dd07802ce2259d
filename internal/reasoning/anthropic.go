package reasoning

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/fieldpulse/copilot/internal/metrics"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicClient implements Client for Claude models.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicClient creates a Claude-backed reasoning client. The API key
// comes from ANTHROPIC_API_KEY.
func NewAnthropicClient(model string, maxTokens int) *AnthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *AnthropicClient) Name() string { return "anthropic" }

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		metrics.ReasoningCalls.WithLabelValues(c.Name(), "error").Inc()
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	metrics.ReasoningCalls.WithLabelValues(c.Name(), "ok").Inc()
	return content, nil
}
