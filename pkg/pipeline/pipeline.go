package pipeline

import (
	"github.com/zen-systems/promptchain/pkg/adapter"
	"github.com/zen-systems/promptchain/pkg/prompt"
)

// RenderFunc builds a stage's prompt from the outputs of earlier
// stages. It must be pure: no side effects, same inputs same prompt.
type RenderFunc func(prior Outputs) (prompt.Prompt, error)

// Stage is one step of a pipeline: a render function plus model-call
// configuration. A Stage is pure configuration with no side effects at
// construction.
type Stage struct {
	Name string

	// Needs lists the stage names the render function reads. Every
	// entry must appear strictly earlier in the pipeline.
	Needs []string

	Render RenderFunc

	// Client and Model select the provider; empty values fall back to
	// the runner defaults.
	Client string
	Model  string

	Config adapter.GenerateConfig
}

// Pipeline is an ordered, immutable stage plan. Build one with New so
// definition errors surface at construction, not mid-run.
type Pipeline struct {
	Name        string
	Description string
	Stages      []Stage
}

// New validates the stage list and returns the pipeline. Duplicate
// names, forward or self references, missing render functions, and
// out-of-range model configs are all DefinitionErrors.
func New(name string, stages ...Stage) (*Pipeline, error) {
	p := &Pipeline{Name: name, Stages: stages}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the pipeline definition for errors.
func (p *Pipeline) Validate() error {
	if p.Name == "" {
		return &DefinitionError{Pipeline: p.Name, Reason: "pipeline name is required"}
	}
	if len(p.Stages) == 0 {
		return &DefinitionError{Pipeline: p.Name, Reason: "pipeline must define at least one stage"}
	}

	seen := make(map[string]struct{}, len(p.Stages))
	for _, stage := range p.Stages {
		if stage.Name == "" {
			return &DefinitionError{Pipeline: p.Name, Reason: "stage name is required"}
		}
		if _, ok := seen[stage.Name]; ok {
			return &DefinitionError{Pipeline: p.Name, Stage: stage.Name, Reason: "duplicate stage name"}
		}
		if stage.Render == nil {
			return &DefinitionError{Pipeline: p.Name, Stage: stage.Name, Reason: "render function is required"}
		}
		if err := stage.Config.Validate(); err != nil {
			return &DefinitionError{Pipeline: p.Name, Stage: stage.Name, Reason: err.Error()}
		}
		for _, need := range stage.Needs {
			if need == stage.Name {
				return &DefinitionError{Pipeline: p.Name, Stage: stage.Name, Reason: "stage cannot depend on itself"}
			}
			if _, ok := seen[need]; !ok {
				return &DefinitionError{Pipeline: p.Name, Stage: stage.Name, Reason: "depends on " + need + ", which is not an earlier stage"}
			}
		}
		seen[stage.Name] = struct{}{}
	}

	return nil
}
