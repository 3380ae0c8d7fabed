package service

import "context"

// ModelScorer is the pluggable extension point for a trained risk model.
// When wired, its calibrated score replaces the rule-based raw score; banding,
// alerting and explanation stay local so the output contract never changes.
type ModelScorer interface {
	Score(ctx context.Context, patientID string, features map[string]float64, flags map[string]bool) (float64, error)
}
