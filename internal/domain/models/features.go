package models

import "time"

// Flag names shared by the feature engine, the scorer and the weight table.
const (
	FlagTachycardia    = "flag_tachycardia"
	FlagTachypnea      = "flag_tachypnea"
	FlagHypotension    = "flag_hypotension"
	FlagLowMAP         = "flag_low_map"
	FlagFever          = "flag_fever"
	FlagHypothermia    = "flag_hypothermia"
	FlagLowSpO2        = "flag_low_spo2"
	FlagHighLactate    = "flag_elevated_lactate"
	FlagHighWBC        = "flag_high_wbc"
	FlagLowPlatelets   = "flag_low_platelets"
	FlagHighCreatinine = "flag_high_creatinine"
	FlagShockIndexHigh = "flag_shock_index_high"
)

// AllFlags lists every flag in a fixed order. The scorer validates its weight
// table against this set at startup.
var AllFlags = []string{
	FlagTachycardia,
	FlagTachypnea,
	FlagHypotension,
	FlagLowMAP,
	FlagFever,
	FlagHypothermia,
	FlagLowSpO2,
	FlagHighLactate,
	FlagHighWBC,
	FlagLowPlatelets,
	FlagHighCreatinine,
	FlagShockIndexHigh,
}

// FeatureRecord is the derived, model-ready view of one validated event.
// Features holds raw passthrough vitals/labs plus derived signals (map,
// shock_index); absent inputs are simply omitted. Never mutated after
// creation.
type FeatureRecord struct {
	PatientID        string             `json:"patient_id"`
	AdmissionID      string             `json:"admission_id"`
	Timestamp        string             `json:"timestamp"`
	EventTime        time.Time          `json:"-"`
	Features         map[string]float64 `json:"features"`
	Flags            map[string]bool    `json:"flags"`
	MissingnessScore float64            `json:"missingness_score"`
}
