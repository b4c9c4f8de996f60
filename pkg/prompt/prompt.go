package prompt

import "fmt"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged entry of a rendered prompt.
type Message struct {
	Role    Role   `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// Prompt is the ordered message list sent to a model client.
type Prompt []Message

// System returns a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Validate checks the prompt shape: at least one message, known roles,
// and a system message only in first position.
func (p Prompt) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("prompt must contain at least one message")
	}
	for i, msg := range p {
		switch msg.Role {
		case RoleSystem:
			if i != 0 {
				return fmt.Errorf("system message must be first, found at position %d", i)
			}
		case RoleUser:
		default:
			return fmt.Errorf("unknown role %q at position %d", msg.Role, i)
		}
		if msg.Content == "" {
			return fmt.Errorf("message at position %d has empty content", i)
		}
	}
	return nil
}

// SystemText returns the system message content, or "" when absent.
func (p Prompt) SystemText() string {
	if len(p) > 0 && p[0].Role == RoleSystem {
		return p[0].Content
	}
	return ""
}

// UserMessages returns the user messages in order.
func (p Prompt) UserMessages() []Message {
	msgs := make([]Message, 0, len(p))
	for _, msg := range p {
		if msg.Role == RoleUser {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}
