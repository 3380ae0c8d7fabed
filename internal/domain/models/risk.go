package models

import "time"

// RiskLevel is an ordered categorical band over the risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Rank orders levels for comparisons; unknown names sort lowest.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return -1
	}
}

// RiskResult is the terminal artifact of the pipeline for one event.
// Field layout is a consumer contract with the warehouse and dashboards.
type RiskResult struct {
	PatientID        string             `json:"patient_id"`
	AdmissionID      string             `json:"admission_id"`
	Timestamp        string             `json:"timestamp"`
	EventTime        time.Time          `json:"-"`
	RiskScore        float64            `json:"risk_score"`
	RiskLevel        RiskLevel          `json:"risk_level"`
	Alert            bool               `json:"alert"`
	TopContributors  []string           `json:"top_contributors"`
	Features         map[string]float64 `json:"features"`
	Flags            map[string]bool    `json:"flags"`
	MissingnessScore float64            `json:"missingness_score"`
}
