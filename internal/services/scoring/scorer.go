package scoring

import (
	"fmt"
	"math"
	"sort"

	"SepsisWatch/internal/domain/models"
	"SepsisWatch/pkg/config"
)

// Scorer turns a feature record into a normalized, banded, explainable risk
// result. Score is pure and total; all tunables arrive through the validated
// scoring configuration.
type Scorer struct {
	weights         map[string]float64
	totalWeight     float64
	bands           []config.Band
	dampingFactor   float64
	alertThreshold  float64
	maxContributors int
}

// New builds a Scorer from the declarative scoring configuration. The weight
// table must cover exactly the known flag set; anything else is a fatal
// startup error.
func New(cfg *config.Scoring) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(models.AllFlags))
	for _, f := range models.AllFlags {
		known[f] = true
	}
	total := 0.0
	for name, w := range cfg.Weights {
		if !known[name] {
			return nil, fmt.Errorf("scoring weight for unknown indicator %q", name)
		}
		total += w
	}
	for _, f := range models.AllFlags {
		if _, ok := cfg.Weights[f]; !ok {
			return nil, fmt.Errorf("scoring weight missing for indicator %q", f)
		}
	}

	bands := make([]config.Band, len(cfg.Bands))
	copy(bands, cfg.Bands)
	sort.Slice(bands, func(i, j int) bool { return bands[i].Low < bands[j].Low })

	return &Scorer{
		weights:         cfg.Weights,
		totalWeight:     total,
		bands:           bands,
		dampingFactor:   cfg.DampingFactor,
		alertThreshold:  cfg.AlertThreshold,
		maxContributors: cfg.MaxContributors,
	}, nil
}

// Score computes the rule-based risk result for one feature record.
func (s *Scorer) Score(rec *models.FeatureRecord) *models.RiskResult {
	raw := 0.0
	for name, on := range rec.Flags {
		if on {
			raw += s.weights[name]
		}
	}
	normalized := raw / s.totalWeight

	// Sparse observations get damped toward LOW rather than scored with
	// unearned confidence.
	damped := normalized * (1 - rec.MissingnessScore*s.dampingFactor)

	return s.ResultFromScore(rec, damped)
}

// ResultFromScore assembles a risk result from an externally calibrated score
// in [0,1]. The model extension point goes through here so banding, alerting
// and contributor ranking stay identical on both paths.
func (s *Scorer) ResultFromScore(rec *models.FeatureRecord, score float64) *models.RiskResult {
	score = clamp01(score)
	score = math.Round(score*10000) / 10000

	level := s.band(score)

	alert := level != models.RiskLow
	if s.alertThreshold > 0 {
		alert = score >= s.alertThreshold
	}

	return &models.RiskResult{
		PatientID:        rec.PatientID,
		AdmissionID:      rec.AdmissionID,
		Timestamp:        rec.Timestamp,
		EventTime:        rec.EventTime,
		RiskScore:        score,
		RiskLevel:        level,
		Alert:            alert,
		TopContributors:  s.topContributors(rec.Flags),
		Features:         rec.Features,
		Flags:            rec.Flags,
		MissingnessScore: rec.MissingnessScore,
	}
}

// band maps a score to its risk level. Bands are half-open [low,high) with
// the final band closed at 1.0; validation guarantees full coverage.
func (s *Scorer) band(score float64) models.RiskLevel {
	for i, b := range s.bands {
		last := i == len(s.bands)-1
		if score >= b.Low && (score < b.High || (last && score <= b.High)) {
			return models.RiskLevel(b.Name)
		}
	}
	// Unreachable with a validated band table.
	return models.RiskLevel(s.bands[len(s.bands)-1].Name)
}

// topContributors ranks the triggered flags by configured weight, descending,
// with a lexical tie-break for determinism, truncated to the configured cap.
func (s *Scorer) topContributors(flags map[string]bool) []string {
	out := make([]string, 0, len(flags))
	for name, on := range flags {
		if on {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		wi, wj := s.weights[out[i]], s.weights[out[j]]
		if wi != wj {
			return wi > wj
		}
		return out[i] < out[j]
	})
	if len(out) > s.maxContributors {
		out = out[:s.maxContributors]
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
