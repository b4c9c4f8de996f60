package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zen-systems/promptchain/pkg/pipeline"
)

// StageRecord is the on-disk JSON record for one stage.
type StageRecord struct {
	Name           string `json:"name"`
	Output         string `json:"output"`
	Hash           string `json:"hash,omitempty"`
	Attempt        int    `json:"attempt,omitempty"`
	DurationMillis int64  `json:"duration_ms,omitempty"`
}

// RecordSink writes a JSON record bundle per run: run.json with the run
// metadata and stages/<name>.json per stage, in a directory keyed by
// run ID.
type RecordSink struct {
	BaseDir string
}

// NewRecordSink creates a record sink rooted at baseDir.
func NewRecordSink(baseDir string) *RecordSink {
	return &RecordSink{BaseDir: baseDir}
}

// Persist writes records from the ordered output pairs alone.
func (s *RecordSink) Persist(ctx context.Context, info RunInfo, outputs []pipeline.StageOutput) (string, error) {
	records := make([]StageRecord, 0, len(outputs))
	for _, out := range outputs {
		records = append(records, StageRecord{Name: out.Name, Output: out.Output})
	}
	return s.write(ctx, info, records)
}

// PersistRun writes records enriched with per-stage attempt counts,
// hashes, and durations from the completed run.
func (s *RecordSink) PersistRun(ctx context.Context, info RunInfo, run *pipeline.Run) (string, error) {
	outputs := run.Outputs()
	records := make([]StageRecord, 0, len(outputs))
	for _, out := range outputs {
		record := StageRecord{Name: out.Name, Output: out.Output}
		if res, ok := run.Result(out.Name); ok {
			record.Hash = res.Hash
			record.Attempt = res.Attempt
			record.DurationMillis = res.FinishedAt.Sub(res.StartedAt).Milliseconds()
		}
		records = append(records, record)
	}
	return s.write(ctx, info, records)
}

func (s *RecordSink) write(ctx context.Context, info RunInfo, records []StageRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if info.RunID == "" {
		return "", fmt.Errorf("run ID is required")
	}
	baseDir := s.BaseDir
	if baseDir == "" {
		baseDir = filepath.Join(".promptchain", "runs")
	}

	runDir := filepath.Join(baseDir, info.RunID)
	if err := os.MkdirAll(filepath.Join(runDir, "stages"), 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "run.json"), info); err != nil {
		return "", err
	}
	for _, record := range records {
		path := filepath.Join(runDir, "stages", fmt.Sprintf("%s.json", record.Name))
		if err := writeJSON(path, record); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
