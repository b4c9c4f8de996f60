package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/zen-systems/promptchain/pkg/prompt"
)

// AnthropicClient implements the Client interface for Claude models.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{client: client}, nil
}

// Name returns the client identifier.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Models returns the list of supported Claude models.
func (c *AnthropicClient) Models() []string {
	return []string{
		"claude-sonnet-4-20250514",
		"claude-opus-4-20250514",
	}
}

// Complete sends the message list to Claude and returns the completion text.
// The system message maps to the Messages API system field.
func (c *AnthropicClient) Complete(ctx context.Context, model string, msgs prompt.Prompt, cfg GenerateConfig) (string, error) {
	if err := validateRequest(c.Name(), msgs, cfg); err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(cfg.MaxTokens),
		Temperature: anthropic.Float(cfg.Temperature),
	}
	if sys := msgs.SystemText(); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	for _, msg := range msgs.UserMessages() {
		params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &Error{Client: c.Name(), Status: apiErr.StatusCode, Err: err}
		}
		return "", &Error{Client: c.Name(), Err: fmt.Errorf("anthropic API error: %w", err)}
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return content, nil
}
