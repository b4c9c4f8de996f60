package pipeline

import (
	"fmt"
	"os"
	"text/template"
	"text/template/parse"

	"github.com/zen-systems/promptchain/pkg/adapter"
	"github.com/zen-systems/promptchain/pkg/prompt"
	"gopkg.in/yaml.v3"
)

// Fallbacks for stages and manifests that leave model parameters unset.
const (
	FallbackTemperature = 0.7
	FallbackMaxTokens   = 2000
)

// Manifest is the YAML pipeline definition format.
type Manifest struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Defaults    ManifestDefaults `yaml:"defaults"`
	Stages      []*ManifestStage `yaml:"stages"`
}

// ManifestDefaults apply to stages that omit the matching field.
type ManifestDefaults struct {
	Client      string   `yaml:"client,omitempty"`
	Model       string   `yaml:"model,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   *int     `yaml:"max_tokens,omitempty"`
}

// ManifestStage declares one pipeline stage. The system and user fields
// are text/template bodies; templates see {{ .Input }} and
// {{ .Outputs.<stage> }} for every stage named in needs.
type ManifestStage struct {
	Name        string   `yaml:"name"`
	Needs       []string `yaml:"needs,omitempty"`
	Client      string   `yaml:"client,omitempty"`
	Model       string   `yaml:"model,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   *int     `yaml:"max_tokens,omitempty"`
	System      string   `yaml:"system,omitempty"`
	User        string   `yaml:"user"`
}

// TemplateData is what manifest stage templates render against.
type TemplateData struct {
	Input   string
	Outputs Outputs
}

// LoadManifest reads a pipeline manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	return &m, nil
}

// Build compiles the manifest into a validated Pipeline, binding input
// into each stage's render closure. Template references to stage
// outputs are checked against the stage's needs list here, so a
// misdeclared dependency is a definition error, not a runtime one.
func (m *Manifest) Build(input string) (*Pipeline, error) {
	stages := make([]Stage, 0, len(m.Stages))
	for _, ms := range m.Stages {
		stage, err := m.buildStage(ms, input)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}

	p, err := New(m.Name, stages...)
	if err != nil {
		return nil, err
	}
	p.Description = m.Description
	return p, nil
}

func (m *Manifest) buildStage(ms *ManifestStage, input string) (Stage, error) {
	if ms.Name == "" {
		return Stage{}, &DefinitionError{Pipeline: m.Name, Reason: "stage name is required"}
	}
	if ms.User == "" {
		return Stage{}, &DefinitionError{Pipeline: m.Name, Stage: ms.Name, Reason: "user prompt is required"}
	}

	var sysTmpl *prompt.Template
	if ms.System != "" {
		t, err := prompt.NewTemplate(ms.Name+".system", prompt.RoleSystem, ms.System)
		if err != nil {
			return Stage{}, &DefinitionError{Pipeline: m.Name, Stage: ms.Name, Reason: err.Error()}
		}
		sysTmpl = t
	}
	userTmpl, err := prompt.NewTemplate(ms.Name+".user", prompt.RoleUser, ms.User)
	if err != nil {
		return Stage{}, &DefinitionError{Pipeline: m.Name, Stage: ms.Name, Reason: err.Error()}
	}

	if err := m.checkOutputRefs(ms); err != nil {
		return Stage{}, err
	}

	render := func(prior Outputs) (prompt.Prompt, error) {
		data := TemplateData{Input: input, Outputs: prior}
		var msgs prompt.Prompt
		if sysTmpl != nil {
			msg, err := sysTmpl.Render(data)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, msg)
		}
		msg, err := userTmpl.Render(data)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
		return msgs, nil
	}

	return Stage{
		Name:   ms.Name,
		Needs:  append([]string(nil), ms.Needs...),
		Render: render,
		Client: firstNonEmpty(ms.Client, m.Defaults.Client),
		Model:  firstNonEmpty(ms.Model, m.Defaults.Model),
		Config: adapter.GenerateConfig{
			Temperature: floatOr(ms.Temperature, m.Defaults.Temperature, FallbackTemperature),
			MaxTokens:   intOr(ms.MaxTokens, m.Defaults.MaxTokens, FallbackMaxTokens),
		},
	}, nil
}

// checkOutputRefs verifies that every {{ .Outputs.<name> }} reference in
// the stage templates appears in the stage's needs list.
func (m *Manifest) checkOutputRefs(ms *ManifestStage) error {
	needs := make(map[string]struct{}, len(ms.Needs))
	for _, need := range ms.Needs {
		needs[need] = struct{}{}
	}

	for _, body := range []string{ms.System, ms.User} {
		if body == "" {
			continue
		}
		refs, err := outputRefs(body)
		if err != nil {
			return &DefinitionError{Pipeline: m.Name, Stage: ms.Name, Reason: err.Error()}
		}
		for _, ref := range refs {
			if _, ok := needs[ref]; !ok {
				return &DefinitionError{
					Pipeline: m.Name,
					Stage:    ms.Name,
					Reason:   fmt.Sprintf("template references output %s, which is not listed in needs", ref),
				}
			}
		}
	}

	return nil
}

// outputRefs parses a template body and collects the stage names
// referenced as .Outputs.<name>.
func outputRefs(body string) ([]string, error) {
	tmpl, err := template.New("refs").Parse(body)
	if err != nil {
		return nil, err
	}

	var refs []string
	seen := make(map[string]struct{})
	walkNodes(tmpl.Tree.Root, func(idents []string) {
		if len(idents) >= 2 && idents[0] == "Outputs" {
			if _, ok := seen[idents[1]]; !ok {
				seen[idents[1]] = struct{}{}
				refs = append(refs, idents[1])
			}
		}
	})
	return refs, nil
}

func walkNodes(node parse.Node, visit func(idents []string)) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			walkNodes(child, visit)
		}
	case *parse.ActionNode:
		walkPipe(n.Pipe, visit)
	case *parse.IfNode:
		walkPipe(n.Pipe, visit)
		walkNodes(n.List, visit)
		walkNodes(n.ElseList, visit)
	case *parse.RangeNode:
		walkPipe(n.Pipe, visit)
		walkNodes(n.List, visit)
		walkNodes(n.ElseList, visit)
	case *parse.WithNode:
		walkPipe(n.Pipe, visit)
		walkNodes(n.List, visit)
		walkNodes(n.ElseList, visit)
	case *parse.TemplateNode:
		walkPipe(n.Pipe, visit)
	}
}

func walkPipe(pipe *parse.PipeNode, visit func(idents []string)) {
	if pipe == nil {
		return
	}
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			switch a := arg.(type) {
			case *parse.FieldNode:
				visit(a.Ident)
			case *parse.ChainNode:
				if field, ok := a.Node.(*parse.FieldNode); ok {
					visit(append(append([]string(nil), field.Ident...), a.Field...))
				} else {
					visit(a.Field)
				}
			case *parse.PipeNode:
				walkPipe(a, visit)
			}
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func floatOr(override, def *float64, fallback float64) float64 {
	if override != nil {
		return *override
	}
	if def != nil {
		return *def
	}
	return fallback
}

func intOr(override, def *int, fallback int) int {
	if override != nil {
		return *override
	}
	if def != nil {
		return *def
	}
	return fallback
}
