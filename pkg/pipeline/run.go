package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// State tracks a run through its lifecycle. Terminal states are final;
// a fresh Run is required to retry the whole pipeline.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StageResult captures one successful stage execution. Immutable after
// creation; only the runner appends results to a run.
type StageResult struct {
	Name       string    `json:"name"`
	Output     string    `json:"output"`
	Hash       string    `json:"hash"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Attempt    int       `json:"attempt"`
}

// StageOutput is one (name, output) pair in declaration order.
type StageOutput struct {
	Name   string
	Output string
}

// Run is one execution instance of a pipeline with its own accumulated
// outputs. A Run is owned by a single Runner.Run invocation and shares
// no state with other runs of the same definition.
type Run struct {
	ID       string
	Pipeline string

	order   []string
	results map[string]StageResult

	state       State
	failedStage string
	failedIndex int
	err         error
}

func newRun(id string, p *Pipeline) *Run {
	order := make([]string, len(p.Stages))
	for i, stage := range p.Stages {
		order[i] = stage.Name
	}
	return &Run{
		ID:          id,
		Pipeline:    p.Name,
		order:       order,
		results:     make(map[string]StageResult, len(order)),
		state:       StateIdle,
		failedIndex: -1,
	}
}

// State returns the run's lifecycle state.
func (r *Run) State() State {
	return r.state
}

// Err returns the failure error for a failed run, nil otherwise.
func (r *Run) Err() error {
	return r.err
}

// FailedStage returns the name and index of the failing stage, or
// ("", -1) when the run did not fail.
func (r *Run) FailedStage() (string, int) {
	if r.state != StateFailed {
		return "", -1
	}
	return r.failedStage, r.failedIndex
}

// Result returns the recorded result for a stage.
func (r *Run) Result(name string) (StageResult, bool) {
	res, ok := r.results[name]
	return res, ok
}

// Outputs returns the recorded (name, output) pairs in declaration
// order. For a completed run this covers every stage.
func (r *Run) Outputs() []StageOutput {
	outputs := make([]StageOutput, 0, len(r.results))
	for _, name := range r.order {
		if res, ok := r.results[name]; ok {
			outputs = append(outputs, StageOutput{Name: name, Output: res.Output})
		}
	}
	return outputs
}

// priorOutputs returns the outputs of stages declared before index i,
// as a fresh map: render functions read prior text, never runner state.
func (r *Run) priorOutputs(i int) Outputs {
	outputs := make(Outputs, i)
	for _, name := range r.order[:i] {
		if res, ok := r.results[name]; ok {
			outputs[name] = res.Output
		}
	}
	return outputs
}

func (r *Run) record(res StageResult) {
	r.results[res.Name] = res
}

func (r *Run) fail(stage string, index int, err error) {
	r.state = StateFailed
	r.failedStage = stage
	r.failedIndex = index
	r.err = err
}

// Outputs maps stage names to their recorded output text. Render
// functions receive exactly the outputs of strictly earlier stages.
type Outputs map[string]string

// Need returns the output of a named stage, or a MissingDependencyError
// naming the absent stage. The stage argument identifies the caller for
// error reporting.
func (o Outputs) Need(stage, name string) (string, error) {
	out, ok := o[name]
	if !ok {
		return "", &MissingDependencyError{Stage: stage, Dependency: name}
	}
	return out, nil
}

func hashOutput(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])[:16]
}
