package models

import (
	"fmt"
	"strings"
)

// Stable validation error codes; upstream quarantine handling keys off these.
const (
	CodeMissingPatientID   = "MISSING_PATIENT_ID"
	CodeMissingAdmissionID = "MISSING_ADMISSION_ID"
	CodeMissingTimestamp   = "MISSING_TIMESTAMP"
	CodeInvalidVitals      = "INVALID_VITALS"
	CodeInvalidLabs        = "INVALID_LABS"
	CodeInvalidType        = "INVALID_TYPE"
)

// ValidationError describes one schema or plausibility violation.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationErrors is the complete, ordered error set for one event.
// Empty means the event is valid.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	codes := make([]string, 0, len(ve))
	for _, e := range ve {
		codes = append(codes, e.Code)
	}
	return fmt.Sprintf("event rejected: %s", strings.Join(codes, ", "))
}

// Codes returns the error codes in report order.
func (ve ValidationErrors) Codes() []string {
	out := make([]string, 0, len(ve))
	for _, e := range ve {
		out = append(out, e.Code)
	}
	return out
}

// QuarantineReport pairs a rejected event with its full error set, in the
// shape the dead-letter consumers expect.
type QuarantineReport struct {
	Event  ObservationEvent `json:"event"`
	Errors ValidationErrors `json:"errors"`
}
