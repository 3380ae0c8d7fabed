package models

// Requests for the assessment HTTP endpoints. Defined in domain for consistency and reuse.

type LatestAssessmentRequest struct {
	PatientID string `param:"patient_id" json:"patient_id" validate:"required"`
	N         int    `query:"n" json:"n" default:"1" validate:"gte=1,lte=100"`
}

type AssessmentHistoryRequest struct {
	PatientID   string `query:"patient_id" json:"patient_id" validate:"required"`
	AdmissionID string `query:"admission_id" json:"admission_id"`
	From        string `query:"from" json:"from"`
	To          string `query:"to" json:"to"`
	Limit       int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}
