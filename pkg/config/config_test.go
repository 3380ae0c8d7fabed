package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validScoring() Scoring { return DefaultScoring() }

func TestDefaultScoringIsValid(t *testing.T) {
	s := validScoring()
	if err := s.Validate(); err != nil {
		t.Fatalf("default scoring must validate: %v", err)
	}
}

func TestScoringRejectsBandGap(t *testing.T) {
	s := validScoring()
	s.Bands = []Band{
		{Name: "LOW", Low: 0, High: 0.3},
		{Name: "HIGH", Low: 0.4, High: 1.0},
	}
	if err := s.Validate(); err == nil {
		t.Fatalf("band gap must be rejected")
	}
}

func TestScoringRejectsBandOverlap(t *testing.T) {
	s := validScoring()
	s.Bands = []Band{
		{Name: "LOW", Low: 0, High: 0.5},
		{Name: "HIGH", Low: 0.4, High: 1.0},
	}
	if err := s.Validate(); err == nil {
		t.Fatalf("band overlap must be rejected")
	}
}

func TestScoringRejectsUncoveredRange(t *testing.T) {
	s := validScoring()
	s.Bands = []Band{
		{Name: "LOW", Low: 0.1, High: 0.5},
		{Name: "HIGH", Low: 0.5, High: 1.0},
	}
	if err := s.Validate(); err == nil {
		t.Fatalf("bands must start at 0")
	}

	s.Bands = []Band{
		{Name: "LOW", Low: 0, High: 0.5},
		{Name: "HIGH", Low: 0.5, High: 0.9},
	}
	if err := s.Validate(); err == nil {
		t.Fatalf("bands must end at 1.0")
	}
}

func TestScoringRejectsUnknownBandName(t *testing.T) {
	s := validScoring()
	s.Bands = []Band{
		{Name: "LOW", Low: 0, High: 0.3},
		{Name: "MEDIUM", Low: 0.3, High: 0.6},
		{Name: "SEVERE", Low: 0.6, High: 1.0},
	}
	if err := s.Validate(); err == nil {
		t.Fatalf("band with unknown risk level name must be rejected")
	}
}

func TestScoringRejectsNonPositiveWeight(t *testing.T) {
	s := validScoring()
	s.Weights["flag_fever"] = 0
	if err := s.Validate(); err == nil {
		t.Fatalf("zero weight must be rejected")
	}
	s.Weights["flag_fever"] = -1
	if err := s.Validate(); err == nil {
		t.Fatalf("negative weight must be rejected")
	}
}

func TestScoringRejectsInvertedLimit(t *testing.T) {
	s := validScoring()
	s.Limits["heart_rate"] = Bound{Min: 300, Max: 0}
	if err := s.Validate(); err == nil {
		t.Fatalf("inverted limit must be rejected")
	}
}

func TestScoringRejectsDampingOutOfRange(t *testing.T) {
	s := validScoring()
	s.DampingFactor = 1.5
	if err := s.Validate(); err == nil {
		t.Fatalf("damping above 1 must be rejected")
	}
}

func TestScoringAlertThresholdMustMatchBanding(t *testing.T) {
	s := validScoring()
	s.AlertThreshold = 0.25
	if err := s.Validate(); err == nil {
		t.Fatalf("threshold off the MEDIUM boundary must be rejected")
	}
	s.AlertThreshold = 0.3
	if err := s.Validate(); err != nil {
		t.Fatalf("threshold on the MEDIUM boundary must pass: %v", err)
	}
}

func TestLoadAppliesScoringDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
environment: test
backend:
  type: clickhouse
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Scoring.Weights) == 0 || len(cfg.Scoring.Bands) == 0 {
		t.Fatalf("scoring defaults not applied: %+v", cfg.Scoring)
	}
	if cfg.Scoring.DampingFactor != 0.1 {
		t.Fatalf("damping default = %v, want 0.1", cfg.Scoring.DampingFactor)
	}
	if cfg.Logger.Level != "info" {
		t.Fatalf("logger defaults not applied")
	}
}

func TestLoadRejectsInvalidBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
environment: test
backend:
  type: postgres
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("unsupported backend must be rejected")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
environment: test
backend:
  type: clickhouse
kafka:
  brokers: [localhost:9092]
  observations_topic: icu.observations
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("BACKEND", "kafka")
	t.Setenv("KAFKA_OBSERVATIONS_TOPIC", "icu.observations.v2")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.Type != "kafka" {
		t.Fatalf("env backend override not applied: %s", cfg.Backend.Type)
	}
	if cfg.Kafka.ObservationsTopic != "icu.observations.v2" {
		t.Fatalf("env topic override not applied: %s", cfg.Kafka.ObservationsTopic)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("env port override not applied: %d", cfg.Server.Port)
	}
}
