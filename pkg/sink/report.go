package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zen-systems/promptchain/pkg/pipeline"
)

const reportRule = "================================================================================"

// ReportSink writes a plain-text report with one titled section per
// stage, in declaration order.
type ReportSink struct {
	Dir string
}

// NewReportSink creates a report sink rooted at dir.
func NewReportSink(dir string) *ReportSink {
	return &ReportSink{Dir: dir}
}

// Persist writes the report and returns its path.
func (s *ReportSink) Persist(ctx context.Context, info RunInfo, outputs []pipeline.StageOutput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(reportRule + "\n")
	fmt.Fprintf(&sb, "%s (run %s)\n", info.Pipeline, info.RunID)
	sb.WriteString(reportRule + "\n")
	fmt.Fprintf(&sb, "Generated: %s\n", info.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	if info.Input != "" {
		fmt.Fprintf(&sb, "Input: %s\n", info.Input)
	}
	for _, key := range sortedKeys(info.Params) {
		fmt.Fprintf(&sb, "  %s: %s\n", key, info.Params[key])
	}
	sb.WriteString("\n")

	for i, out := range outputs {
		fmt.Fprintf(&sb, "SECTION %d: %s\n", i+1, strings.ToUpper(out.Name))
		sb.WriteString(strings.Repeat("-", len(reportRule)) + "\n")
		sb.WriteString(strings.TrimRight(out.Output, "\n"))
		sb.WriteString("\n\n")
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.txt", sanitize(info.Pipeline), info.RunID))
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
