package usecase

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBatchRunnerRunFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "events.jsonl")
	output := filepath.Join(dir, "out", "summary.json")

	content := `{"patient_id":"P1","admission_id":"A1","timestamp":"2026-03-01T08:15:00Z","hr":118,"sbp":92,"dbp":58,"lactate":2.6}
{"admission_id":"A2","timestamp":"2026-03-01T08:20:00Z"}
`
	if err := os.WriteFile(input, []byte(content), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	runner := NewBatchRunner(testPipeline(t, nil))
	summary, err := runner.RunFile(context.Background(), input, output)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(summary.Results) != 1 || len(summary.Rejected) != 1 {
		t.Fatalf("results=%d rejected=%d", len(summary.Results), len(summary.Rejected))
	}
	if summary.Results[0].RiskScore != 0.3214 {
		t.Fatalf("risk score = %v, want 0.3214", summary.Results[0].RiskScore)
	}
	if summary.Stats.Parsed != 2 {
		t.Fatalf("stats %+v", summary.Stats)
	}

	// Output file is a loadable summary.
	b, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var loaded BatchSummary
	if err := json.Unmarshal(b, &loaded); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if len(loaded.Results) != 1 {
		t.Fatalf("roundtripped results = %d", len(loaded.Results))
	}
}

func TestBatchRunnerMissingInputFile(t *testing.T) {
	runner := NewBatchRunner(testPipeline(t, nil))
	if _, err := runner.RunFile(context.Background(), "/nonexistent/events.json", ""); err == nil {
		t.Fatalf("missing input must error")
	}
}
