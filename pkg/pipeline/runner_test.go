package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/zen-systems/promptchain/pkg/adapter"
	"github.com/zen-systems/promptchain/pkg/prompt"
)

func newTestRunner(client adapter.Client) *Runner {
	return &Runner{
		Clients:    map[string]adapter.Client{client.Name(): client},
		NewBackoff: ZeroBackoff,
	}
}

// researchAnalysis is the two-stage pipeline used throughout: research
// ignores prior outputs, analysis embeds the research output verbatim.
func researchAnalysis(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New("demo",
		Stage{
			Name:   "research",
			Render: fixedRender("do the research"),
			Config: stageConfig,
		},
		Stage{
			Name:  "analysis",
			Needs: []string{"research"},
			Render: func(prior Outputs) (prompt.Prompt, error) {
				research, err := prior.Need("analysis", "research")
				if err != nil {
					return nil, err
				}
				return prompt.Prompt{prompt.User("analyze this:\n" + research)}, nil
			},
			Config: stageConfig,
		},
	)
	require.NoError(t, err)
	return p
}

func TestRunCompletesAllStages(t *testing.T) {
	client := adapter.NewMockClientWithResponses(map[string]string{
		"do the research": "R1",
		"analyze this":    "A1",
	}, "")

	run, err := newTestRunner(client).Run(context.Background(), researchAnalysis(t))
	require.NoError(t, err)
	require.Equal(t, StateCompleted, run.State())

	want := []StageOutput{{Name: "research", Output: "R1"}, {Name: "analysis", Output: "A1"}}
	if diff := cmp.Diff(want, run.Outputs()); diff != "" {
		t.Fatalf("outputs mismatch (-want +got):\n%s", diff)
	}

	// The analysis prompt must embed the research output verbatim.
	calls := client.Calls()
	require.Len(t, calls, 2)
	require.Contains(t, calls[1].Msgs[len(calls[1].Msgs)-1].Content, "R1")
}

func TestRenderSeesOnlyEarlierStages(t *testing.T) {
	var seen []Outputs
	observe := func(name, text string) RenderFunc {
		return func(prior Outputs) (prompt.Prompt, error) {
			snapshot := make(Outputs, len(prior))
			for k, v := range prior {
				snapshot[k] = v
			}
			seen = append(seen, snapshot)
			return prompt.Prompt{prompt.User(text)}, nil
		}
	}

	p, err := New("demo",
		Stage{Name: "one", Render: observe("one", "p1"), Config: stageConfig},
		Stage{Name: "two", Needs: []string{"one"}, Render: observe("two", "p2"), Config: stageConfig},
		Stage{Name: "three", Needs: []string{"one", "two"}, Render: observe("three", "p3"), Config: stageConfig},
	)
	require.NoError(t, err)

	client := adapter.NewMockClient().Enqueue("o1").Enqueue("o2").Enqueue("o3")
	_, err = newTestRunner(client).Run(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, seen, 3)
	require.Empty(t, seen[0])
	require.Equal(t, Outputs{"one": "o1"}, seen[1])
	require.Equal(t, Outputs{"one": "o1", "two": "o2"}, seen[2])
}

func TestTransientFailuresRetryUntilSuccess(t *testing.T) {
	client := adapter.NewMockClient().
		Enqueue("R1").
		EnqueueError(&adapter.Error{Status: 429}).
		EnqueueError(&adapter.Error{Status: 503}).
		Enqueue("A1")

	run, err := newTestRunner(client).Run(context.Background(), researchAnalysis(t))
	require.NoError(t, err)
	require.Equal(t, StateCompleted, run.State())

	research, ok := run.Result("research")
	require.True(t, ok)
	require.Equal(t, 1, research.Attempt)

	analysis, ok := run.Result("analysis")
	require.True(t, ok)
	require.Equal(t, 3, analysis.Attempt)
	require.Equal(t, "A1", analysis.Output)
}

func TestRetriesNeverExceedBound(t *testing.T) {
	client := adapter.NewMockClient()
	for i := 0; i < 5; i++ {
		client.EnqueueError(&adapter.Error{Status: 500})
	}

	run, err := newTestRunner(client).Run(context.Background(), researchAnalysis(t))
	require.Error(t, err)
	require.Equal(t, StateFailed, run.State())

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, "research", stageErr.Stage)
	require.Equal(t, 0, stageErr.Index)
	require.Equal(t, DefaultMaxAttempts, stageErr.Attempts)
	require.True(t, stageErr.Transient())

	// Exactly MaxAttempts calls, not one more.
	require.Len(t, client.Calls(), DefaultMaxAttempts)

	name, index := run.FailedStage()
	require.Equal(t, "research", name)
	require.Equal(t, 0, index)
	require.Empty(t, run.Outputs())
}

func TestFatalErrorStopsImmediately(t *testing.T) {
	client := adapter.NewMockClient().
		Enqueue("R1").
		EnqueueError(&adapter.Error{Status: 401})

	run, err := newTestRunner(client).Run(context.Background(), researchAnalysis(t))
	require.Error(t, err)
	require.Equal(t, StateFailed, run.State())

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, "analysis", stageErr.Stage)
	require.Equal(t, 1, stageErr.Attempts)
	require.False(t, stageErr.Transient())

	// No second attempt on the fatal stage.
	require.Len(t, client.Calls(), 2)

	// The failed stage records nothing; earlier results survive.
	_, ok := run.Result("analysis")
	require.False(t, ok)
	research, ok := run.Result("research")
	require.True(t, ok)
	require.Equal(t, "R1", research.Output)
}

func TestRenderFailureIsFatal(t *testing.T) {
	p, err := New("demo",
		Stage{
			Name: "broken",
			Render: func(Outputs) (prompt.Prompt, error) {
				return nil, fmt.Errorf("template exploded")
			},
			Config: stageConfig,
		},
	)
	require.NoError(t, err)

	client := adapter.NewMockClient()
	run, err := newTestRunner(client).Run(context.Background(), p)
	require.Error(t, err)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	require.Equal(t, "broken", renderErr.Stage)
	require.Equal(t, StateFailed, run.State())

	// Rendering is local and deterministic: no model call, no retry.
	require.Empty(t, client.Calls())
}

func TestInvalidRenderedPromptIsFatal(t *testing.T) {
	p, err := New("demo",
		Stage{
			Name: "broken",
			Render: func(Outputs) (prompt.Prompt, error) {
				return prompt.Prompt{prompt.User("hi"), prompt.System("late")}, nil
			},
			Config: stageConfig,
		},
	)
	require.NoError(t, err)

	run, err := newTestRunner(adapter.NewMockClient()).Run(context.Background(), p)
	require.Error(t, err)
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	require.Equal(t, StateFailed, run.State())
}

// cancelAfterClient cancels the run context once its first completion
// returns, so the runner observes cancellation between stages.
type cancelAfterClient struct {
	adapter.Client
	cancel context.CancelFunc
}

func (c *cancelAfterClient) Complete(ctx context.Context, model string, msgs prompt.Prompt, cfg adapter.GenerateConfig) (string, error) {
	out, err := c.Client.Complete(ctx, model, msgs, cfg)
	c.cancel()
	return out, err
}

func TestCancellationBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := adapter.NewMockClientWithResponses(map[string]string{"p1": "done"}, "")
	client := &cancelAfterClient{Client: mock, cancel: cancel}

	p, err := New("demo",
		Stage{Name: "first", Render: fixedRender("p1"), Config: stageConfig},
		Stage{Name: "second", Render: fixedRender("p2"), Config: stageConfig},
	)
	require.NoError(t, err)

	runner := &Runner{
		Clients:    map[string]adapter.Client{"mock": client},
		NewBackoff: ZeroBackoff,
	}
	run, err := runner.Run(ctx, p)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StateFailed, run.State())

	// The cancelled stage produced no result; the completed one is intact.
	_, ok := run.Result("second")
	require.False(t, ok)
	firstResult, ok := run.Result("first")
	require.True(t, ok)
	require.Equal(t, "done", firstResult.Output)
	require.Len(t, mock.Calls(), 1)
}

func TestIndependentRunsShareNoState(t *testing.T) {
	p := researchAnalysis(t)

	clientA := adapter.NewMockClient().Enqueue("RA").Enqueue("AA")
	clientB := adapter.NewMockClient().Enqueue("RB").Enqueue("AB")

	runA, err := newTestRunner(clientA).Run(context.Background(), p)
	require.NoError(t, err)
	runB, err := newTestRunner(clientB).Run(context.Background(), p)
	require.NoError(t, err)

	require.NotEqual(t, runA.Outputs(), runB.Outputs())

	// Mutating one run's view must not leak into the other.
	outputs := runA.Outputs()
	outputs[0].Output = "tampered"
	fresh := runA.Outputs()
	require.Equal(t, "RA", fresh[0].Output)

	resB, ok := runB.Result("research")
	require.True(t, ok)
	require.Equal(t, "RB", resB.Output)
}

func TestConcurrentRuns(t *testing.T) {
	p := researchAnalysis(t)
	runner := newTestRunner(adapter.NewMockClient())

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			run, err := runner.Run(context.Background(), p)
			if err == nil && run.State() != StateCompleted {
				err = fmt.Errorf("unexpected state %s", run.State())
			}
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
}

func TestStageTimestampsAndHash(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))

	runner := newTestRunner(adapter.NewMockClient().Enqueue("R1").Enqueue("A1"))
	runner.Clock = clock

	run, err := runner.Run(context.Background(), researchAnalysis(t))
	require.NoError(t, err)

	res, ok := run.Result("research")
	require.True(t, ok)
	require.Equal(t, clock.Now(), res.StartedAt)
	require.Equal(t, clock.Now(), res.FinishedAt)
	require.NotEmpty(t, res.Hash)

	other, _ := run.Result("analysis")
	require.NotEqual(t, res.Hash, other.Hash)
}

func TestRunnerRejectsInvalidDefinition(t *testing.T) {
	p := &Pipeline{Name: "bad"}
	_, err := newTestRunner(adapter.NewMockClient()).Run(context.Background(), p)
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
}

func TestRunnerRequiresClients(t *testing.T) {
	runner := &Runner{NewBackoff: ZeroBackoff}
	_, err := runner.Run(context.Background(), researchAnalysis(t))
	require.Error(t, err)
}

func TestRunnerUnknownClient(t *testing.T) {
	p, err := New("demo",
		Stage{Name: "only", Render: fixedRender("p"), Client: "openai", Config: stageConfig},
	)
	require.NoError(t, err)

	run, err := newTestRunner(adapter.NewMockClient()).Run(context.Background(), p)
	require.Error(t, err)
	require.Equal(t, StateFailed, run.State())
	require.Contains(t, err.Error(), "openai")
}

func TestCallTimeoutIsTransient(t *testing.T) {
	client := adapter.NewMockClient().
		EnqueueError(context.DeadlineExceeded).
		Enqueue("R1").
		Enqueue("A1")

	runner := newTestRunner(client)
	runner.CallTimeout = time.Second

	run, err := runner.Run(context.Background(), researchAnalysis(t))
	require.NoError(t, err)

	res, ok := run.Result("research")
	require.True(t, ok)
	require.Equal(t, 2, res.Attempt)
	require.Equal(t, StateCompleted, run.State())
}
