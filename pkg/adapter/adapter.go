package adapter

import (
	"context"
	"fmt"

	"github.com/zen-systems/promptchain/pkg/prompt"
)

// GenerateConfig carries the per-call model parameters.
type GenerateConfig struct {
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
}

// Validate checks the config against model API limits.
func (c GenerateConfig) Validate() error {
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature %.2f out of range [0.0, 2.0]", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

// Client defines the interface for LLM provider clients.
type Client interface {
	// Complete sends a rendered prompt to the model and returns the
	// textual completion. Each call is one network round-trip; results
	// are never cached.
	Complete(ctx context.Context, model string, msgs prompt.Prompt, cfg GenerateConfig) (string, error)

	// Name returns the client's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// validateRequest enforces the request contract shared by all clients.
// Violations are fatal: the same request would fail again unchanged.
func validateRequest(client string, msgs prompt.Prompt, cfg GenerateConfig) error {
	if err := msgs.Validate(); err != nil {
		return &Error{Client: client, Err: fmt.Errorf("invalid prompt: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return &Error{Client: client, Err: fmt.Errorf("invalid config: %w", err)}
	}
	return nil
}
