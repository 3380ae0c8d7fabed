package models

import "time"

// ObservationEvent is one structurally-parsed ICU observation handed to the
// pipeline by the ingestion layer. Vitals/labs values stay untyped until the
// validator has coerced them; unknown keys are ignored downstream.
type ObservationEvent struct {
	PatientID   string                 `json:"patient_id"`
	AdmissionID string                 `json:"admission_id"`
	Timestamp   string                 `json:"timestamp"`
	Vitals      map[string]interface{} `json:"vitals,omitempty"`
	Labs        map[string]interface{} `json:"labs,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ValidatedEvent is an ObservationEvent that passed schema and plausibility
// checks. Vitals/labs are coerced to floats and restricted to declared fields.
// Immutable once produced.
type ValidatedEvent struct {
	PatientID   string
	AdmissionID string
	Timestamp   string // original wire value, copied through untouched
	EventTime   time.Time
	Vitals      map[string]float64
	Labs        map[string]float64
}
