package prompt

import (
	"strings"
	"testing"
)

func TestValidateRequiresMessages(t *testing.T) {
	var p Prompt
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestValidateSystemMustBeFirst(t *testing.T) {
	p := Prompt{User("hello"), System("rules")}
	err := p.Validate()
	if err == nil {
		t.Fatal("expected error for misplaced system message")
	}
	if !strings.Contains(err.Error(), "system message must be first") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAcceptsSystemThenUser(t *testing.T) {
	p := Prompt{System("rules"), User("hello"), User("more")}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsUnknownRole(t *testing.T) {
	p := Prompt{{Role: "assistant", Content: "hi"}}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestValidateRejectsEmptyContent(t *testing.T) {
	p := Prompt{User("")}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestSystemText(t *testing.T) {
	p := Prompt{System("rules"), User("hello")}
	if got := p.SystemText(); got != "rules" {
		t.Fatalf("unexpected system text: %q", got)
	}
	p = Prompt{User("hello")}
	if got := p.SystemText(); got != "" {
		t.Fatalf("expected empty system text, got %q", got)
	}
}

func TestTemplateRender(t *testing.T) {
	tmpl, err := NewTemplate("greeting", RoleUser, "Plan a trip to {{ .Destination }}.")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	msg, err := tmpl.Render(map[string]string{"Destination": "Iceland"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Role != RoleUser {
		t.Fatalf("unexpected role: %q", msg.Role)
	}
	if msg.Content != "Plan a trip to Iceland." {
		t.Fatalf("unexpected content: %q", msg.Content)
	}
}

func TestTemplateRenderMissingKey(t *testing.T) {
	tmpl, err := NewTemplate("greeting", RoleUser, "{{ .Missing }}")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	if _, err := tmpl.Render(map[string]string{}); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestTemplateRejectsBadRole(t *testing.T) {
	if _, err := NewTemplate("bad", "assistant", "text"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestTemplateParseError(t *testing.T) {
	if _, err := NewTemplate("bad", RoleUser, "{{ .Open"); err == nil {
		t.Fatal("expected parse error")
	}
}
