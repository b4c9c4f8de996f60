package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// Template is a named, parameterized instruction text with a role tag.
// Rendering is pure: the same data always yields the same message.
type Template struct {
	name string
	role Role
	tmpl *template.Template
}

// NewTemplate parses text as a text/template body. Missing keys are
// rendering errors, not silent blanks.
func NewTemplate(name string, role Role, text string) (*Template, error) {
	if name == "" {
		return nil, fmt.Errorf("template name is required")
	}
	if role != RoleSystem && role != RoleUser {
		return nil, fmt.Errorf("template %s: unknown role %q", name, role)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return &Template{name: name, role: role, tmpl: tmpl}, nil
}

// MustTemplate is NewTemplate that panics on error, for package-level
// template declarations.
func MustTemplate(name string, role Role, text string) *Template {
	t, err := NewTemplate(name, role, text)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the template identifier.
func (t *Template) Name() string {
	return t.name
}

// Role returns the role tag of rendered messages.
func (t *Template) Role() Role {
	return t.role
}

// Render executes the template against data and returns the message.
func (t *Template) Render(data any) (Message, error) {
	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, data); err != nil {
		return Message{}, fmt.Errorf("render template %s: %w", t.name, err)
	}
	return Message{Role: t.role, Content: sb.String()}, nil
}
