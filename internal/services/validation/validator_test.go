package validation

import (
	"testing"
	"time"

	"SepsisWatch/internal/domain/models"
	"SepsisWatch/pkg/config"
)

func testValidator() *Validator {
	def := config.DefaultScoring()
	return New(def.Limits)
}

func TestValidateAcceptsCompleteEvent(t *testing.T) {
	v := testValidator()
	ev := models.ObservationEvent{
		PatientID:   "P001",
		AdmissionID: "A100",
		Timestamp:   "2026-03-01T08:15:00Z",
		Vitals: map[string]interface{}{
			"heart_rate":          118.0,
			"systolic_bp":         92,
			"diastolic_bp":        "58",
			"temperature_celsius": 37.2,
		},
		Labs: map[string]interface{}{
			"lactate_mmol_l": 2.6,
		},
	}

	got, errs := v.Validate(ev)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got.PatientID != "P001" || got.AdmissionID != "A100" {
		t.Fatalf("identity not copied: %+v", got)
	}
	if got.Timestamp != ev.Timestamp {
		t.Fatalf("timestamp must be copied through untouched, got %q", got.Timestamp)
	}
	want := time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC)
	if !got.EventTime.Equal(want) {
		t.Fatalf("event time %v, want %v", got.EventTime, want)
	}
	if got.Vitals["systolic_bp"] != 92 {
		t.Fatalf("int not coerced: %v", got.Vitals["systolic_bp"])
	}
	if got.Vitals["diastolic_bp"] != 58 {
		t.Fatalf("numeric string not coerced: %v", got.Vitals["diastolic_bp"])
	}
	if got.Labs["lactate_mmol_l"] != 2.6 {
		t.Fatalf("lab not coerced: %v", got.Labs["lactate_mmol_l"])
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	v := testValidator()
	ev := models.ObservationEvent{
		Timestamp: "not-a-time",
		Vitals: map[string]interface{}{
			"heart_rate":  "fast",
			"systolic_bp": 400.0,
		},
		Labs: map[string]interface{}{
			"lactate_mmol_l": -1.0,
		},
	}

	_, errs := v.Validate(ev)
	wantCodes := []string{
		models.CodeMissingPatientID,
		models.CodeMissingAdmissionID,
		models.CodeMissingTimestamp,
		models.CodeInvalidType,
		models.CodeInvalidVitals,
		models.CodeInvalidLabs,
	}
	got := errs.Codes()
	if len(got) != len(wantCodes) {
		t.Fatalf("got %d errors %v, want %d", len(got), got, len(wantCodes))
	}
	for i, c := range wantCodes {
		if got[i] != c {
			t.Fatalf("error %d: got %s, want %s (all: %v)", i, got[i], c, got)
		}
	}
}

func TestValidateMissingAdmissionOnly(t *testing.T) {
	v := testValidator()
	ev := models.ObservationEvent{
		PatientID: "P002",
		Timestamp: "2026-03-01T09:00:00Z",
		Vitals:    map[string]interface{}{"heart_rate": 80.0},
	}

	_, errs := v.Validate(ev)
	if len(errs) != 1 {
		t.Fatalf("got %v, want exactly one error", errs)
	}
	if errs[0].Code != models.CodeMissingAdmissionID || errs[0].Field != "admission_id" {
		t.Fatalf("unexpected error %+v", errs[0])
	}
}

func TestValidateOutOfRangeIsRejectedNotClamped(t *testing.T) {
	v := testValidator()
	ev := models.ObservationEvent{
		PatientID:   "P003",
		AdmissionID: "A300",
		Timestamp:   "2026-03-01T09:00:00Z",
		Vitals:      map[string]interface{}{"heart_rate": 301.0},
	}

	validated, errs := v.Validate(ev)
	if validated != nil {
		t.Fatalf("expected rejection, got %+v", validated)
	}
	if len(errs) != 1 || errs[0].Code != models.CodeInvalidVitals {
		t.Fatalf("unexpected errors %v", errs)
	}
	if errs[0].Field != "vitals.heart_rate" {
		t.Fatalf("field should be section-qualified, got %q", errs[0].Field)
	}
}

func TestValidateIgnoresUnknownAndNilFields(t *testing.T) {
	v := testValidator()
	ev := models.ObservationEvent{
		PatientID:   "P004",
		AdmissionID: "A400",
		Timestamp:   "2026-03-01T09:00:00Z",
		Vitals: map[string]interface{}{
			"heart_rate":    90.0,
			"pupil_size":    99.0, // not a declared field
			"systolic_bp":   nil,
			"temperature_f": 98.6,
		},
	}

	got, errs := v.Validate(ev)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(got.Vitals) != 1 {
		t.Fatalf("only declared non-nil fields should survive, got %v", got.Vitals)
	}
}

func TestValidateRejectsNonFiniteValues(t *testing.T) {
	v := testValidator()
	for _, bad := range []interface{}{"NaN", "Inf", true, []interface{}{1.0}} {
		ev := models.ObservationEvent{
			PatientID:   "P005",
			AdmissionID: "A500",
			Timestamp:   "2026-03-01T09:00:00Z",
			Vitals:      map[string]interface{}{"heart_rate": bad},
		}
		_, errs := v.Validate(ev)
		if len(errs) != 1 || errs[0].Code != models.CodeInvalidType {
			t.Fatalf("value %v: got %v, want single INVALID_TYPE", bad, errs)
		}
	}
}

func TestValidateUnixTimestamp(t *testing.T) {
	v := testValidator()
	ev := models.ObservationEvent{
		PatientID:   "P006",
		AdmissionID: "A600",
		Timestamp:   "1767257700",
	}
	got, errs := v.Validate(ev)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got.EventTime.Unix() != 1767257700 {
		t.Fatalf("unix timestamp not parsed: %v", got.EventTime)
	}
}
