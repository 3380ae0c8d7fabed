package features

import (
	"math"
	"testing"

	"SepsisWatch/internal/domain/models"
	"SepsisWatch/pkg/config"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	th, err := ThresholdsFromConfig(config.DefaultScoring().Thresholds)
	if err != nil {
		t.Fatalf("thresholds: %v", err)
	}
	return NewEngine(th)
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDeriveComputesMapAndShockIndex(t *testing.T) {
	e := testEngine(t)
	ev := &models.ValidatedEvent{
		PatientID:   "P001",
		AdmissionID: "A100",
		Timestamp:   "2026-03-01T08:15:00Z",
		Vitals: map[string]float64{
			"heart_rate":   118,
			"systolic_bp":  92,
			"diastolic_bp": 58,
		},
		Labs: map[string]float64{
			"lactate_mmol_l": 2.6,
		},
	}

	rec := e.Derive(ev)

	if !approx(rec.Features["map"], 58+(92-58)/3.0) {
		t.Fatalf("map = %v, want %v", rec.Features["map"], 58+(92-58)/3.0)
	}
	if !approx(rec.Features["shock_index"], 118.0/92.0) {
		t.Fatalf("shock_index = %v", rec.Features["shock_index"])
	}
	if !rec.Flags[models.FlagTachycardia] {
		t.Fatalf("tachycardia should fire at hr=118")
	}
	if !rec.Flags[models.FlagShockIndexHigh] {
		t.Fatalf("shock index flag should fire at %v", 118.0/92.0)
	}
	if !rec.Flags[models.FlagHighLactate] {
		t.Fatalf("lactate flag should fire at 2.6")
	}
	if rec.Flags[models.FlagHypotension] {
		t.Fatalf("hypotension must not fire at sbp=92")
	}
	if rec.Flags[models.FlagLowMAP] {
		t.Fatalf("low map must not fire at map=%v", rec.Features["map"])
	}
	// 4 of 10 expected fields present.
	if !approx(rec.MissingnessScore, 0.6) {
		t.Fatalf("missingness = %v, want 0.6", rec.MissingnessScore)
	}
}

func TestDeriveEmptyEvent(t *testing.T) {
	e := testEngine(t)
	rec := e.Derive(&models.ValidatedEvent{
		PatientID:   "P002",
		AdmissionID: "A200",
		Timestamp:   "2026-03-01T08:15:00Z",
		Vitals:      map[string]float64{},
		Labs:        map[string]float64{},
	})

	if rec.MissingnessScore != 1.0 {
		t.Fatalf("missingness = %v, want 1.0", rec.MissingnessScore)
	}
	if len(rec.Features) != 0 {
		t.Fatalf("no features expected, got %v", rec.Features)
	}
	for name, on := range rec.Flags {
		if on {
			t.Fatalf("flag %s must not fire on an empty event", name)
		}
	}
	if len(rec.Flags) != len(models.AllFlags) {
		t.Fatalf("all flags must be present even when false, got %d", len(rec.Flags))
	}
}

func TestDeriveClampsBorderlineValues(t *testing.T) {
	e := testEngine(t)
	rec := e.Derive(&models.ValidatedEvent{
		PatientID:   "P003",
		AdmissionID: "A300",
		Timestamp:   "2026-03-01T08:15:00Z",
		Vitals: map[string]float64{
			"heart_rate":        260, // plausible per limits, above clamp ceiling
			"oxygen_saturation": 45,
		},
		Labs: map[string]float64{
			"platelets": 1600,
		},
	})

	if rec.Features["heart_rate"] != 250 {
		t.Fatalf("heart_rate = %v, want clamped 250", rec.Features["heart_rate"])
	}
	if rec.Features["oxygen_saturation"] != 50 {
		t.Fatalf("oxygen_saturation = %v, want clamped 50", rec.Features["oxygen_saturation"])
	}
	if rec.Features["platelets"] != 1500 {
		t.Fatalf("platelets = %v, want clamped 1500", rec.Features["platelets"])
	}
}

func TestDeriveTemperatureBoundaries(t *testing.T) {
	e := testEngine(t)

	rec := e.Derive(&models.ValidatedEvent{
		Vitals: map[string]float64{"temperature_celsius": 38},
		Labs:   map[string]float64{},
	})
	if !rec.Flags[models.FlagFever] {
		t.Fatalf("fever fires at exactly 38.0")
	}
	if rec.Flags[models.FlagHypothermia] {
		t.Fatalf("hypothermia must not fire at 38.0")
	}

	rec = e.Derive(&models.ValidatedEvent{
		Vitals: map[string]float64{"temperature_celsius": 36},
		Labs:   map[string]float64{},
	})
	if !rec.Flags[models.FlagHypothermia] {
		t.Fatalf("hypothermia fires at exactly 36.0")
	}
}

func TestDeriveSkipsDerivationsOnMissingInputs(t *testing.T) {
	e := testEngine(t)
	rec := e.Derive(&models.ValidatedEvent{
		Vitals: map[string]float64{"systolic_bp": 92},
		Labs:   map[string]float64{},
	})

	if _, ok := rec.Features["map"]; ok {
		t.Fatalf("map must be absent without diastolic_bp")
	}
	if _, ok := rec.Features["shock_index"]; ok {
		t.Fatalf("shock_index must be absent without heart_rate")
	}
	if rec.Flags[models.FlagLowMAP] || rec.Flags[models.FlagShockIndexHigh] {
		t.Fatalf("derived flags must not fire on missing derivations")
	}
}

func TestThresholdsFromConfigRejectsUnknownAndMissing(t *testing.T) {
	m := config.DefaultScoring().Thresholds
	m["bogus_threshold"] = 1
	if _, err := ThresholdsFromConfig(m); err == nil {
		t.Fatalf("unknown threshold name must be rejected")
	}
	delete(m, "bogus_threshold")

	delete(m, "low_spo2")
	if _, err := ThresholdsFromConfig(m); err == nil {
		t.Fatalf("missing threshold must be rejected")
	}
}

func TestThresholdsFromConfigAcceptsExplicitZero(t *testing.T) {
	m := config.DefaultScoring().Thresholds
	m["hypothermia_c"] = 0

	th, err := ThresholdsFromConfig(m)
	if err != nil {
		t.Fatalf("zero-valued cutoff must be configurable: %v", err)
	}
	if th.HypothermiaC != 0 {
		t.Fatalf("zero cutoff not applied: %v", th.HypothermiaC)
	}
}
