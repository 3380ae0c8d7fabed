package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"SepsisWatch/internal/domain/models"
	"SepsisWatch/internal/service/ingest"
)

// BatchSummary is the artifact of one batch run: assessments, quarantined
// events and ingestion stats, in a shape dashboards and notebooks can load
// directly.
type BatchSummary struct {
	Results  []*models.RiskResult      `json:"results"`
	Rejected []models.QuarantineReport `json:"rejected"`
	Stats    *ingest.Stats             `json:"stats"`
}

// BatchRunner processes a file of observation events end to end without any
// broker or warehouse, for local demo runs and offline re-scoring.
type BatchRunner struct {
	pipe *Pipeline
}

func NewBatchRunner(pipe *Pipeline) *BatchRunner {
	return &BatchRunner{pipe: pipe}
}

// RunFile ingests inputPath, assesses every event and writes the summary to
// outputPath as indented JSON. Events are independent; output order follows
// input order for reproducible diffs.
func (b *BatchRunner) RunFile(ctx context.Context, inputPath, outputPath string) (*BatchSummary, error) {
	events, stats, err := ingest.LoadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	summary := &BatchSummary{
		Results:  make([]*models.RiskResult, 0, len(events)),
		Rejected: make([]models.QuarantineReport, 0),
		Stats:    stats,
	}

	for _, ev := range events {
		result, verrs := b.pipe.Run(ctx, ev)
		if len(verrs) > 0 {
			summary.Rejected = append(summary.Rejected, models.QuarantineReport{Event: ev, Errors: verrs})
			continue
		}
		summary.Results = append(summary.Results, result)
	}

	if outputPath != "" {
		if err := writeJSON(outputPath, summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func writeJSON(path string, v interface{}) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
