package usecase

import (
	"context"
	"errors"
	"testing"

	"SepsisWatch/internal/domain/models"
	"SepsisWatch/internal/services/features"
	"SepsisWatch/internal/services/scoring"
	"SepsisWatch/internal/services/validation"
	"SepsisWatch/pkg/config"
)

type nopMetrics struct{}

func (nopMetrics) RecordValidationFailure(string)   {}
func (nopMetrics) RecordAssessment(string, float64) {}
func (nopMetrics) RecordAlert()                     {}
func (nopMetrics) RecordResultSent(string)          {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordLatency(string, float64)    {}

type fixedModel struct {
	score float64
	err   error
	calls int
}

func (m *fixedModel) Score(_ context.Context, _ string, _ map[string]float64, _ map[string]bool) (float64, error) {
	m.calls++
	return m.score, m.err
}

func testPipeline(t *testing.T, model *fixedModel) *Pipeline {
	t.Helper()
	cfg := config.DefaultScoring()
	validator := validation.New(cfg.Limits)
	th, err := features.ThresholdsFromConfig(cfg.Thresholds)
	if err != nil {
		t.Fatalf("thresholds: %v", err)
	}
	scorer, err := scoring.New(&cfg)
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	if model != nil {
		return NewPipeline(validator, features.NewEngine(th), scorer, model, nopMetrics{})
	}
	return NewPipeline(validator, features.NewEngine(th), scorer, nil, nopMetrics{})
}

func sampleEvent() models.ObservationEvent {
	return models.ObservationEvent{
		PatientID:   "P001",
		AdmissionID: "A100",
		Timestamp:   "2026-03-01T08:15:00Z",
		Vitals: map[string]interface{}{
			"heart_rate":   118.0,
			"systolic_bp":  92.0,
			"diastolic_bp": 58.0,
		},
		Labs: map[string]interface{}{
			"lactate_mmol_l": 2.6,
		},
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	p := testPipeline(t, nil)

	result, verrs := p.Run(context.Background(), sampleEvent())
	if len(verrs) != 0 {
		t.Fatalf("unexpected validation errors: %v", verrs)
	}
	if result.RiskScore != 0.3214 {
		t.Fatalf("risk score = %v, want 0.3214", result.RiskScore)
	}
	if result.RiskLevel != models.RiskMedium || !result.Alert {
		t.Fatalf("got %s alert=%v, want MEDIUM alert", result.RiskLevel, result.Alert)
	}
	if result.MissingnessScore != 0.6 {
		t.Fatalf("missingness = %v, want 0.6", result.MissingnessScore)
	}
}

func TestPipelineShortCircuitsOnValidationFailure(t *testing.T) {
	model := &fixedModel{score: 0.9}
	p := testPipeline(t, model)

	ev := sampleEvent()
	ev.AdmissionID = ""
	result, verrs := p.Run(context.Background(), ev)
	if result != nil {
		t.Fatalf("rejected event must not produce a result: %+v", result)
	}
	if len(verrs) != 1 || verrs[0].Code != models.CodeMissingAdmissionID {
		t.Fatalf("unexpected errors: %v", verrs)
	}
	if model.calls != 0 {
		t.Fatalf("model must not be called for a rejected event")
	}
}

func TestPipelineUsesModelScore(t *testing.T) {
	model := &fixedModel{score: 0.75}
	p := testPipeline(t, model)

	result, verrs := p.Run(context.Background(), sampleEvent())
	if len(verrs) != 0 {
		t.Fatalf("unexpected errors: %v", verrs)
	}
	if model.calls != 1 {
		t.Fatalf("model calls = %d, want 1", model.calls)
	}
	if result.RiskScore != 0.75 || result.RiskLevel != models.RiskHigh {
		t.Fatalf("model score must drive the result, got %v %s", result.RiskScore, result.RiskLevel)
	}
}

func TestPipelineFallsBackWhenModelFails(t *testing.T) {
	model := &fixedModel{err: errors.New("model down")}
	p := testPipeline(t, model)

	result, verrs := p.Run(context.Background(), sampleEvent())
	if len(verrs) != 0 {
		t.Fatalf("unexpected errors: %v", verrs)
	}
	if result.RiskScore != 0.3214 {
		t.Fatalf("fallback must be rule-based, got %v", result.RiskScore)
	}
}

func TestPipelineDeterministicForIdenticalInput(t *testing.T) {
	p := testPipeline(t, nil)

	a, _ := p.Run(context.Background(), sampleEvent())
	b, _ := p.Run(context.Background(), sampleEvent())
	if a.RiskScore != b.RiskScore || a.RiskLevel != b.RiskLevel {
		t.Fatalf("identical input must assess identically: %+v vs %+v", a, b)
	}
	if len(a.TopContributors) != len(b.TopContributors) {
		t.Fatalf("contributor sets differ")
	}
	for i := range a.TopContributors {
		if a.TopContributors[i] != b.TopContributors[i] {
			t.Fatalf("contributor order differs: %v vs %v", a.TopContributors, b.TopContributors)
		}
	}
}
