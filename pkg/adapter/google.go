package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zen-systems/promptchain/pkg/prompt"
	"google.golang.org/genai"
)

// GoogleClient implements the Client interface for Gemini models.
type GoogleClient struct {
	client *genai.Client
}

// NewGoogleClient creates a new Google Gemini client.
func NewGoogleClient(apiKey string) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleClient{client: client}, nil
}

// Name returns the client identifier.
func (c *GoogleClient) Name() string {
	return "google"
}

// Models returns the list of supported Gemini models.
func (c *GoogleClient) Models() []string {
	return []string{
		"gemini-2.0-pro",
	}
}

// Complete sends the message list to Gemini and returns the completion
// text. The system message maps to the system instruction; user messages
// are concatenated into one content turn.
func (c *GoogleClient) Complete(ctx context.Context, model string, msgs prompt.Prompt, cfg GenerateConfig) (string, error) {
	if err := validateRequest(c.Name(), msgs, cfg); err != nil {
		return "", err
	}

	temperature := float32(cfg.Temperature)
	genCfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(cfg.MaxTokens),
	}
	if sys := msgs.SystemText(); sys != "" {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: sys}}}
	}

	var user []string
	for _, msg := range msgs.UserMessages() {
		user = append(user, msg.Content)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(strings.Join(user, "\n\n")), genCfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &Error{Client: c.Name(), Status: apiErr.Code, Err: err}
		}
		return "", &Error{Client: c.Name(), Err: fmt.Errorf("google API error: %w", err)}
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", &Error{Client: c.Name(), Err: fmt.Errorf("google returned no candidates")}
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}

	return content, nil
}
