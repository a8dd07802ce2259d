package reasoning

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/fieldpulse/copilot/internal/metrics"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient implements Client for OpenAI chat models.
type OpenAIClient struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAIClient creates an OpenAI-backed reasoning client. The API key
// comes from OPENAI_API_KEY.
func NewOpenAIClient(model string, maxTokens int) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		client:    openai.NewClient(),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		metrics.ReasoningCalls.WithLabelValues(c.Name(), "error").Inc()
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		metrics.ReasoningCalls.WithLabelValues(c.Name(), "error").Inc()
		return "", fmt.Errorf("openai completion: no choices returned")
	}
	metrics.ReasoningCalls.WithLabelValues(c.Name(), "ok").Inc()
	return resp.Choices[0].Message.Content, nil
}
