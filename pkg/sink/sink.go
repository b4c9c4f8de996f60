// Package sink persists completed pipeline runs. Sinks are a strict
// downstream step: the runner never calls them during stage execution.
package sink

import (
	"context"
	"time"

	"github.com/zen-systems/promptchain/pkg/pipeline"
)

// RunInfo carries run-level metadata into a sink.
type RunInfo struct {
	Pipeline    string            `json:"pipeline"`
	RunID       string            `json:"run_id"`
	Input       string            `json:"input,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Sink persists the ordered (stage, output) pairs of a completed run
// and returns a location for the persisted artifact.
type Sink interface {
	Persist(ctx context.Context, info RunInfo, outputs []pipeline.StageOutput) (string, error)
}
