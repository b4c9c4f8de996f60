package adapter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/zen-systems/promptchain/pkg/prompt"
)

// MockCall records one Complete invocation against a MockClient.
type MockCall struct {
	Model  string
	Msgs   prompt.Prompt
	Config GenerateConfig
}

// MockClient returns deterministic responses for local runs and tests.
// Responses are matched on a substring of the last user message; a script
// of canned results takes precedence when present.
type MockClient struct {
	mu              sync.Mutex
	responses       map[string]string
	defaultResponse string
	script          []scriptStep
	calls           []MockCall
}

type scriptStep struct {
	output string
	err    error
}

// NewMockClient creates a mock client with a default response.
func NewMockClient() *MockClient {
	return &MockClient{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockClientWithResponses creates a mock client with responses keyed by
// substrings of the last user message.
func NewMockClientWithResponses(responses map[string]string, defaultResponse string) *MockClient {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockClient{responses: responses, defaultResponse: defaultResponse}
}

// Enqueue appends a canned successful completion to the script.
func (c *MockClient) Enqueue(output string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, scriptStep{output: output})
	return c
}

// EnqueueError appends a canned failure to the script.
func (c *MockClient) EnqueueError(err error) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, scriptStep{err: err})
	return c
}

// Calls returns a copy of the recorded invocations.
func (c *MockClient) Calls() []MockCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	calls := make([]MockCall, len(c.calls))
	copy(calls, c.calls)
	return calls
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (c *MockClient) Models() []string {
	return []string{"mock-1"}
}

// Complete returns the next scripted result, a matched response, or the
// default response echoing the last user message.
func (c *MockClient) Complete(ctx context.Context, model string, msgs prompt.Prompt, cfg GenerateConfig) (string, error) {
	if err := validateRequest(c.Name(), msgs, cfg); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, MockCall{Model: model, Msgs: msgs, Config: cfg})

	if len(c.script) > 0 {
		step := c.script[0]
		c.script = c.script[1:]
		if step.err != nil {
			return "", step.err
		}
		return step.output, nil
	}

	last := lastUserContent(msgs)
	for key, response := range c.responses {
		if key != "" && strings.Contains(last, key) {
			return response, nil
		}
	}

	return fmt.Sprintf("%s\n%s", c.defaultResponse, last), nil
}

func lastUserContent(msgs prompt.Prompt) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == prompt.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
