package pipeline

import (
	"fmt"

	"github.com/zen-systems/promptchain/pkg/adapter"
)

// DefinitionError reports an invalid pipeline definition. It is raised
// at construction, never during Run.
type DefinitionError struct {
	Pipeline string
	Stage    string
	Reason   string
}

func (e *DefinitionError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("pipeline %s: stage %s: %s", e.Pipeline, e.Stage, e.Reason)
	}
	return fmt.Sprintf("pipeline %s: %s", e.Pipeline, e.Reason)
}

// MissingDependencyError reports a render function asking for a stage
// output that is not in scope.
type MissingDependencyError struct {
	Stage      string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("stage %s: missing dependency %s", e.Stage, e.Dependency)
}

// RenderError reports a failed prompt render. Rendering is local and
// deterministic, so render failures abort the run without retry.
type RenderError struct {
	Stage string
	Index int
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render stage %s (index %d): %v", e.Stage, e.Index, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// StageError reports a stage whose model calls failed, with the attempt
// count at the point of failure.
type StageError struct {
	Stage    string
	Index    int
	Attempts int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (index %d) failed after %d attempt(s): %v", e.Stage, e.Index, e.Attempts, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Transient reports whether the underlying failure was retryable.
func (e *StageError) Transient() bool {
	return adapter.IsTransient(e.Err)
}
