package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zen-systems/promptchain/pkg/adapter"
)

const travelManifest = `name: travel
description: two-stage travel demo
defaults:
  client: mock
  model: mock-1
  temperature: 0.7
  max_tokens: 1500
stages:
  - name: flights
    system: You are a flight specialist.
    user: |
      Find flights to {{ .Input }}.
  - name: budget
    needs: [flights]
    temperature: 0.2
    user: |
      Trip destination: {{ .Input }}
      Flight options:
      {{ .Outputs.flights }}
      Produce a budget.
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifestAndBuild(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, travelManifest))
	require.NoError(t, err)
	require.Equal(t, "travel", m.Name)
	require.Len(t, m.Stages, 2)

	p, err := m.Build("Iceland")
	require.NoError(t, err)
	require.Equal(t, "two-stage travel demo", p.Description)

	// Per-stage override beats the manifest default.
	require.InDelta(t, 0.7, p.Stages[0].Config.Temperature, 1e-9)
	require.InDelta(t, 0.2, p.Stages[1].Config.Temperature, 1e-9)
	require.Equal(t, 1500, p.Stages[1].Config.MaxTokens)
	require.Equal(t, "mock", p.Stages[0].Client)
}

func TestManifestPipelineRuns(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, travelManifest))
	require.NoError(t, err)
	p, err := m.Build("Iceland")
	require.NoError(t, err)

	client := adapter.NewMockClientWithResponses(map[string]string{
		"Find flights":     "F1",
		"Produce a budget": "B1",
	}, "")
	runner := &Runner{Clients: map[string]adapter.Client{"mock": client}, NewBackoff: ZeroBackoff}

	run, err := runner.Run(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, run.State())

	// The budget prompt embeds the flights output and the bound input.
	calls := client.Calls()
	require.Len(t, calls, 2)
	budgetPrompt := calls[1].Msgs[len(calls[1].Msgs)-1].Content
	require.Contains(t, budgetPrompt, "F1")
	require.Contains(t, budgetPrompt, "Iceland")

	// System message renders first for the flights stage.
	require.Equal(t, "You are a flight specialist.", calls[0].Msgs.SystemText())
}

func TestManifestRejectsUndeclaredOutputRef(t *testing.T) {
	const bad = `name: travel
stages:
  - name: flights
    user: Find flights.
  - name: budget
    user: |
      {{ .Outputs.flights }}
`
	m, err := LoadManifest(writeManifest(t, bad))
	require.NoError(t, err)

	_, err = m.Build("Iceland")
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
	require.Equal(t, "budget", defErr.Stage)
	require.Contains(t, defErr.Reason, "flights")
}

func TestManifestRejectsForwardNeed(t *testing.T) {
	const bad = `name: travel
stages:
  - name: flights
    needs: [budget]
    user: "{{ .Outputs.budget }}"
  - name: budget
    user: Produce a budget.
`
	m, err := LoadManifest(writeManifest(t, bad))
	require.NoError(t, err)

	_, err = m.Build("Iceland")
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
	require.Equal(t, "flights", defErr.Stage)
}

func TestManifestRejectsBadTemplate(t *testing.T) {
	const bad = `name: travel
stages:
  - name: flights
    user: "{{ .Input"
`
	m, err := LoadManifest(writeManifest(t, bad))
	require.NoError(t, err)

	_, err = m.Build("Iceland")
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
}

func TestManifestRequiresUserPrompt(t *testing.T) {
	const bad = `name: travel
stages:
  - name: flights
    system: You are a flight specialist.
`
	m, err := LoadManifest(writeManifest(t, bad))
	require.NoError(t, err)

	_, err = m.Build("Iceland")
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
	require.Contains(t, defErr.Reason, "user prompt")
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestOutputRefs(t *testing.T) {
	refs, err := outputRefs("{{ .Outputs.flights }} and {{ .Outputs.hotels }} and {{ .Input }}")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"flights", "hotels"}, refs)

	refs, err = outputRefs("{{ if .Outputs.flights }}{{ .Outputs.budget }}{{ end }}")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"flights", "budget"}, refs)

	refs, err = outputRefs("no refs here")
	require.NoError(t, err)
	require.Empty(t, refs)
}
