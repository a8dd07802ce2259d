// Package reasoning wraps the external reasoning call used by intent
// classification. The semantic judgment lives entirely on the other side of
// the wire; this package is transport only.
package reasoning

import (
	"context"
	"fmt"
)

// Client sends one prompt to a reasoning model and returns its raw text
// response.
type Client interface {
	// Name identifies the provider for logs and metrics.
	Name() string
	// Complete sends prompt and returns the model's text output.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string `mapstructure:"provider"` // anthropic | openai | stub
	Model    string `mapstructure:"model"`
	// MaxTokens bounds the completion; routing decisions are small JSON
	// objects so the default is deliberately low.
	MaxTokens int `mapstructure:"max_tokens"`
}

// NewClient constructs the configured provider client. API keys are read by
// the provider SDKs from their standard environment variables.
func NewClient(cfg Config) (Client, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(cfg.Model, cfg.MaxTokens), nil
	case "openai":
		return NewOpenAIClient(cfg.Model, cfg.MaxTokens), nil
	case "stub":
		return NewStubClient(nil), nil
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.Provider)
	}
}
