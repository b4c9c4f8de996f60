package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/zen-systems/promptchain/pkg/prompt"
)

// OpenAIClient implements the Client interface for OpenAI models.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: client}, nil
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Models returns the list of supported OpenAI models.
func (c *OpenAIClient) Models() []string {
	return []string{
		"gpt-5.2-instant",
		"gpt-5.2-thinking",
		"gpt-5.2-pro",
	}
}

// Complete sends the message list to OpenAI and returns the completion text.
func (c *OpenAIClient) Complete(ctx context.Context, model string, msgs prompt.Prompt, cfg GenerateConfig) (string, error) {
	if err := validateRequest(c.Name(), msgs, cfg); err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Temperature:         openai.Float(cfg.Temperature),
		MaxCompletionTokens: openai.Int(int64(cfg.MaxTokens)),
	}
	for _, msg := range msgs {
		switch msg.Role {
		case prompt.RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case prompt.RoleUser:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &Error{Client: c.Name(), Status: apiErr.StatusCode, Err: err}
		}
		return "", &Error{Client: c.Name(), Err: fmt.Errorf("openai API error: %w", err)}
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Client: c.Name(), Err: fmt.Errorf("openai returned no choices")}
	}

	return resp.Choices[0].Message.Content, nil
}
