package scoring

import (
	"bytes"
	"encoding/json"
	"testing"

	"SepsisWatch/internal/domain/models"
	"SepsisWatch/pkg/config"
)

func testScorer(t *testing.T) *Scorer {
	t.Helper()
	cfg := config.DefaultScoring()
	s, err := New(&cfg)
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	return s
}

func flagSet(on ...string) map[string]bool {
	flags := make(map[string]bool, len(models.AllFlags))
	for _, f := range models.AllFlags {
		flags[f] = false
	}
	for _, f := range on {
		flags[f] = true
	}
	return flags
}

func TestScoreRepresentativeEvent(t *testing.T) {
	s := testScorer(t)
	rec := &models.FeatureRecord{
		PatientID:   "P001",
		AdmissionID: "A100",
		Timestamp:   "2026-03-01T08:15:00Z",
		Flags: flagSet(
			models.FlagTachycardia,
			models.FlagShockIndexHigh,
			models.FlagHighLactate,
		),
		MissingnessScore: 0.6,
	}

	got := s.Score(rec)

	// raw 4.0 of 11.7, damped by 0.6*0.1, rounded to 4 decimals.
	if got.RiskScore != 0.3214 {
		t.Fatalf("risk score = %v, want 0.3214", got.RiskScore)
	}
	if got.RiskLevel != models.RiskMedium {
		t.Fatalf("risk level = %s, want MEDIUM", got.RiskLevel)
	}
	if !got.Alert {
		t.Fatalf("alert expected for a MEDIUM assessment")
	}
	want := []string{models.FlagHighLactate, models.FlagShockIndexHigh, models.FlagTachycardia}
	if len(got.TopContributors) != len(want) {
		t.Fatalf("contributors %v, want %v", got.TopContributors, want)
	}
	for i := range want {
		if got.TopContributors[i] != want[i] {
			t.Fatalf("contributors %v, want %v", got.TopContributors, want)
		}
	}
}

func TestScoreNoFlags(t *testing.T) {
	s := testScorer(t)
	got := s.Score(&models.FeatureRecord{Flags: flagSet(), MissingnessScore: 1.0})

	if got.RiskScore != 0 {
		t.Fatalf("risk score = %v, want 0", got.RiskScore)
	}
	if got.RiskLevel != models.RiskLow {
		t.Fatalf("risk level = %s, want LOW", got.RiskLevel)
	}
	if got.Alert {
		t.Fatalf("no alert expected")
	}
	if len(got.TopContributors) != 0 {
		t.Fatalf("contributors must be empty, got %v", got.TopContributors)
	}
}

func TestScoreAllFlagsCapsContributors(t *testing.T) {
	s := testScorer(t)
	got := s.Score(&models.FeatureRecord{Flags: flagSet(models.AllFlags...), MissingnessScore: 0})

	if got.RiskScore != 1.0 {
		t.Fatalf("risk score = %v, want 1.0", got.RiskScore)
	}
	if got.RiskLevel != models.RiskHigh {
		t.Fatalf("risk level = %s, want HIGH", got.RiskLevel)
	}
	want := []string{
		models.FlagHighLactate,    // 2.0
		models.FlagHypotension,    // 1.8
		models.FlagLowMAP,         // 1.6
		models.FlagShockIndexHigh, // 1.2
		models.FlagTachycardia,    // 0.8, lexical tie-break over tachypnea
	}
	if len(got.TopContributors) != len(want) {
		t.Fatalf("contributors %v, want cap of %d", got.TopContributors, len(want))
	}
	for i := range want {
		if got.TopContributors[i] != want[i] {
			t.Fatalf("contributors %v, want %v", got.TopContributors, want)
		}
	}
}

func TestBandBoundaries(t *testing.T) {
	s := testScorer(t)
	cases := []struct {
		score float64
		level models.RiskLevel
	}{
		{0, models.RiskLow},
		{0.2999, models.RiskLow},
		{0.3, models.RiskMedium},
		{0.5999, models.RiskMedium},
		{0.6, models.RiskHigh},
		{1.0, models.RiskHigh},
	}
	for _, c := range cases {
		got := s.ResultFromScore(&models.FeatureRecord{Flags: flagSet()}, c.score)
		if got.RiskLevel != c.level {
			t.Fatalf("score %v: level %s, want %s", c.score, got.RiskLevel, c.level)
		}
	}
}

func TestResultFromScoreClampsAndRounds(t *testing.T) {
	s := testScorer(t)

	if got := s.ResultFromScore(&models.FeatureRecord{Flags: flagSet()}, 1.7); got.RiskScore != 1.0 {
		t.Fatalf("score above 1 must clamp, got %v", got.RiskScore)
	}
	if got := s.ResultFromScore(&models.FeatureRecord{Flags: flagSet()}, -0.2); got.RiskScore != 0 {
		t.Fatalf("score below 0 must clamp, got %v", got.RiskScore)
	}
	if got := s.ResultFromScore(&models.FeatureRecord{Flags: flagSet()}, 0.123456); got.RiskScore != 0.1235 {
		t.Fatalf("score must round to 4 decimals, got %v", got.RiskScore)
	}
}

func TestExplicitAlertThreshold(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.AlertThreshold = 0.3
	s, err := New(&cfg)
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}

	if got := s.ResultFromScore(&models.FeatureRecord{Flags: flagSet()}, 0.29); got.Alert {
		t.Fatalf("no alert expected below threshold")
	}
	if got := s.ResultFromScore(&models.FeatureRecord{Flags: flagSet()}, 0.3); !got.Alert {
		t.Fatalf("alert expected at threshold")
	}
}

func TestNewRejectsBadWeightTables(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.Weights["flag_made_up"] = 1.0
	if _, err := New(&cfg); err == nil {
		t.Fatalf("unknown indicator must be rejected")
	}

	cfg = config.DefaultScoring()
	delete(cfg.Weights, models.FlagFever)
	if _, err := New(&cfg); err == nil {
		t.Fatalf("missing indicator must be rejected")
	}
}

func TestScoreDeterministicSerialization(t *testing.T) {
	s := testScorer(t)
	rec := &models.FeatureRecord{
		PatientID:   "P001",
		AdmissionID: "A100",
		Timestamp:   "2026-03-01T08:15:00Z",
		Features: map[string]float64{
			"heart_rate": 118, "systolic_bp": 92, "map": 69.3333, "shock_index": 1.2826,
		},
		Flags:            flagSet(models.FlagTachycardia, models.FlagShockIndexHigh, models.FlagHighLactate),
		MissingnessScore: 0.6,
	}

	a, err := json.Marshal(s.Score(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(s.Score(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("identical input must serialize identically:\n%s\n%s", a, b)
	}
}
