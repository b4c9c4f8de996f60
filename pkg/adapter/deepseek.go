package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/zen-systems/promptchain/pkg/prompt"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekClient implements the Client interface for DeepSeek models.
// DeepSeek uses an OpenAI-compatible API format.
type DeepSeekClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// deepseekRequest represents the OpenAI-compatible request format.
type deepseekRequest struct {
	Model       string            `json:"model"`
	Messages    []deepseekMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// deepseekMessage represents a chat message.
type deepseekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// deepseekResponse represents the OpenAI-compatible response format.
type deepseekResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewDeepSeekClient creates a new DeepSeek client.
func NewDeepSeekClient(apiKey string) (*DeepSeekClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}

	return &DeepSeekClient{
		apiKey:     apiKey,
		baseURL:    deepseekBaseURL,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the client identifier.
func (c *DeepSeekClient) Name() string {
	return "deepseek"
}

// Models returns the list of supported DeepSeek models.
func (c *DeepSeekClient) Models() []string {
	return []string{
		"deepseek-chat",
		"deepseek-reasoner",
	}
}

// Complete sends the message list to DeepSeek and returns the completion text.
func (c *DeepSeekClient) Complete(ctx context.Context, model string, msgs prompt.Prompt, cfg GenerateConfig) (string, error) {
	if err := validateRequest(c.Name(), msgs, cfg); err != nil {
		return "", err
	}

	reqBody := deepseekRequest{
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	for _, msg := range msgs {
		reqBody.Messages = append(reqBody.Messages, deepseekMessage{Role: string(msg.Role), Content: msg.Content})
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Client: c.Name(), Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", &Error{Client: c.Name(), Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Client: c.Name(), Temporary: true, Err: fmt.Errorf("deepseek API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Client: c.Name(), Temporary: true, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Client: c.Name(),
			Status: resp.StatusCode,
			Err:    fmt.Errorf("deepseek API returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var deepseekResp deepseekResponse
	if err := json.Unmarshal(body, &deepseekResp); err != nil {
		return "", &Error{Client: c.Name(), Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if deepseekResp.Error != nil {
		return "", &Error{Client: c.Name(), Status: resp.StatusCode, Err: fmt.Errorf("deepseek API error: %s (type: %s, code: %s)",
			deepseekResp.Error.Message, deepseekResp.Error.Type, deepseekResp.Error.Code)}
	}

	if len(deepseekResp.Choices) == 0 {
		return "", &Error{Client: c.Name(), Err: fmt.Errorf("deepseek returned no choices")}
	}

	return deepseekResp.Choices[0].Message.Content, nil
}
