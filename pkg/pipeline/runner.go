package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/zen-systems/promptchain/pkg/adapter"
	"github.com/zen-systems/promptchain/pkg/prompt"
)

// DefaultMaxAttempts bounds model calls per stage, counting the first.
const DefaultMaxAttempts = 3

// Runner executes pipelines sequentially: stage i+1 never starts before
// stage i's result is recorded, because its prompt embeds that output.
// A Runner is safe for concurrent use; each Run call owns its own Run
// value and shares nothing with other calls.
type Runner struct {
	Clients map[string]adapter.Client

	// DefaultClient and DefaultModel apply to stages that do not name
	// their own. With a single configured client it is used implicitly.
	DefaultClient string
	DefaultModel  string

	// MaxAttempts bounds model calls per stage; zero means
	// DefaultMaxAttempts.
	MaxAttempts int

	// CallTimeout applies per model call, not per pipeline. An elapsed
	// timeout counts as a transient failure.
	CallTimeout time.Duration

	// NewBackoff supplies the per-stage retry schedule. Nil means
	// exponential backoff from 1s with jitter.
	NewBackoff func() backoff.BackOff

	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Run executes the pipeline and returns its Run. On failure the Run is
// returned alongside the error so callers can inspect which stages
// completed; the failed stage itself records no result.
func (r *Runner) Run(ctx context.Context, p *Pipeline) (*Run, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(r.Clients) == 0 {
		return nil, fmt.Errorf("no clients configured")
	}

	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	run := newRun(runID(clock.Now()), p)
	run.state = StateRunning
	logger.Info("pipeline started", "pipeline", p.Name, "run", run.ID, "stages", len(p.Stages))

	for i, stage := range p.Stages {
		// Cooperative cancellation point between stages. A cancelled
		// stage records no result.
		if err := ctx.Err(); err != nil {
			run.fail(stage.Name, i, err)
			logger.Warn("run cancelled", "pipeline", p.Name, "stage", stage.Name)
			return run, fmt.Errorf("run cancelled before stage %s: %w", stage.Name, err)
		}

		result, err := r.runStage(ctx, clock, logger, run, i, stage)
		if err != nil {
			run.fail(stage.Name, i, err)
			return run, err
		}
		run.record(result)
		logger.Info("stage completed",
			"pipeline", p.Name,
			"stage", stage.Name,
			"attempt", result.Attempt,
			"duration", result.FinishedAt.Sub(result.StartedAt))
	}

	run.state = StateCompleted
	logger.Info("pipeline completed", "pipeline", p.Name, "run", run.ID)
	return run, nil
}

func (r *Runner) runStage(ctx context.Context, clock clockwork.Clock, logger *slog.Logger, run *Run, index int, stage Stage) (StageResult, error) {
	msgs, err := stage.Render(run.priorOutputs(index))
	if err != nil {
		return StageResult{}, &RenderError{Stage: stage.Name, Index: index, Err: err}
	}
	if err := msgs.Validate(); err != nil {
		return StageResult{}, &RenderError{Stage: stage.Name, Index: index, Err: err}
	}

	client, model, err := r.resolveClient(stage)
	if err != nil {
		return StageResult{}, &StageError{Stage: stage.Name, Index: index, Attempts: 0, Err: err}
	}

	maxAttempts := r.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	newBackoff := r.NewBackoff
	if newBackoff == nil {
		newBackoff = defaultBackoff
	}

	started := clock.Now()
	bo := newBackoff()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		output, err := r.complete(ctx, client, model, msgs, stage.Config)
		if err == nil {
			return StageResult{
				Name:       stage.Name,
				Output:     output,
				Hash:       hashOutput(output),
				StartedAt:  started,
				FinishedAt: clock.Now(),
				Attempt:    attempt,
			}, nil
		}
		lastErr = err

		if !adapter.IsTransient(err) {
			logger.Error("stage failed", "stage", stage.Name, "attempt", attempt, "err", err)
			return StageResult{}, &StageError{Stage: stage.Name, Index: index, Attempts: attempt, Err: err}
		}
		if attempt == maxAttempts {
			break
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		logger.Warn("transient stage failure, retrying",
			"stage", stage.Name,
			"attempt", attempt,
			"wait", wait,
			"err", err)
		select {
		case <-ctx.Done():
			return StageResult{}, &StageError{Stage: stage.Name, Index: index, Attempts: attempt, Err: ctx.Err()}
		case <-clock.After(wait):
		}
	}

	return StageResult{}, &StageError{Stage: stage.Name, Index: index, Attempts: maxAttempts, Err: lastErr}
}

func (r *Runner) complete(ctx context.Context, client adapter.Client, model string, msgs prompt.Prompt, cfg adapter.GenerateConfig) (string, error) {
	if r.CallTimeout > 0 {
		callCtx, cancel := context.WithTimeout(ctx, r.CallTimeout)
		defer cancel()
		ctx = callCtx
	}
	return client.Complete(ctx, model, msgs, cfg)
}

func (r *Runner) resolveClient(stage Stage) (adapter.Client, string, error) {
	name := stage.Client
	if name == "" {
		name = r.DefaultClient
	}
	if name == "" {
		name = pickSingleClient(r.Clients)
	}
	if name == "" {
		return nil, "", fmt.Errorf("no client specified for stage %s and no default configured", stage.Name)
	}
	client, ok := r.Clients[name]
	if !ok {
		return nil, "", fmt.Errorf("client %s not found", name)
	}

	model := stage.Model
	if model == "" {
		model = r.DefaultModel
	}
	if model == "" {
		if models := client.Models(); len(models) > 0 {
			model = models[0]
		}
	}
	if model == "" {
		return nil, "", fmt.Errorf("model not specified for stage %s", stage.Name)
	}

	return client, model, nil
}

func pickSingleClient(clients map[string]adapter.Client) string {
	if len(clients) != 1 {
		return ""
	}
	for key := range clients {
		return key
	}
	return ""
}

func defaultBackoff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(time.Second),
		backoff.WithMultiplier(2.0),
		backoff.WithMaxInterval(30*time.Second),
		backoff.WithMaxElapsedTime(0),
	)
}

// ZeroBackoff retries immediately; tests use it to exercise the attempt
// loop without sleeping.
func ZeroBackoff() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

func runID(now time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d", now.UnixNano())))
	return fmt.Sprintf("%s-%s", now.UTC().Format("20060102T150405Z"), hex.EncodeToString(sum[:4]))
}
