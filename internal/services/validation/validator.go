package validation

import (
	"fmt"
	"math"
	"strconv"

	"SepsisWatch/internal/domain/models"
	"SepsisWatch/pkg/config"
	"SepsisWatch/pkg/util"
)

// Validator enforces the event schema and per-field plausibility bounds.
// Out-of-bound values are rejected, never clamped; clamping of in-range
// borderline data is the feature engine's concern.
type Validator struct {
	limits map[string]config.Bound
}

func New(limits map[string]config.Bound) *Validator {
	return &Validator{limits: limits}
}

// Validate checks one raw event and returns either a coerced ValidatedEvent or
// the complete error set. All applicable errors are reported in a fixed order;
// the caller decides what to do with a rejected event.
func (v *Validator) Validate(ev models.ObservationEvent) (*models.ValidatedEvent, models.ValidationErrors) {
	var errs models.ValidationErrors

	if ev.PatientID == "" {
		errs = append(errs, models.ValidationError{
			Code: models.CodeMissingPatientID, Field: "patient_id", Message: "patient_id is required",
		})
	}
	if ev.AdmissionID == "" {
		errs = append(errs, models.ValidationError{
			Code: models.CodeMissingAdmissionID, Field: "admission_id", Message: "admission_id is required",
		})
	}

	eventTime, tsOK := util.ParseTime(ev.Timestamp)
	if !tsOK {
		errs = append(errs, models.ValidationError{
			Code: models.CodeMissingTimestamp, Field: "timestamp", Message: "timestamp is required and must be ISO-8601 or unix seconds",
		})
	}

	vitals := make(map[string]float64, len(models.VitalFields))
	labs := make(map[string]float64, len(models.LabFields))

	errs = append(errs, v.coerceSection("vitals", models.CodeInvalidVitals, models.VitalFields, ev.Vitals, vitals)...)
	errs = append(errs, v.coerceSection("labs", models.CodeInvalidLabs, models.LabFields, ev.Labs, labs)...)

	if len(errs) > 0 {
		return nil, errs
	}

	return &models.ValidatedEvent{
		PatientID:   ev.PatientID,
		AdmissionID: ev.AdmissionID,
		Timestamp:   ev.Timestamp,
		EventTime:   eventTime,
		Vitals:      vitals,
		Labs:        labs,
	}, nil
}

// coerceSection type-checks and bounds-checks every declared field present in
// raw, filling dst with the accepted values. Missing fields are not errors.
func (v *Validator) coerceSection(section, rangeCode string, fields []string, raw map[string]interface{}, dst map[string]float64) models.ValidationErrors {
	if raw == nil {
		return nil
	}

	var errs models.ValidationErrors
	for _, name := range fields {
		val, ok := raw[name]
		if !ok || val == nil {
			continue
		}
		qualified := section + "." + name

		f, ok := asFloat(val)
		if !ok {
			errs = append(errs, models.ValidationError{
				Code: models.CodeInvalidType, Field: qualified,
				Message: fmt.Sprintf("%s must be number-like, got %T", qualified, val),
			})
			continue
		}

		if b, ok := v.limits[name]; ok && (f < b.Min || f > b.Max) {
			errs = append(errs, models.ValidationError{
				Code: rangeCode, Field: qualified,
				Message: fmt.Sprintf("%s value %v outside plausible range [%v, %v]", qualified, f, b.Min, b.Max),
			})
			continue
		}

		dst[name] = f
	}
	return errs
}

// asFloat converts JSON-decoded values to float64. Numeric strings are
// accepted since bedside exports frequently quote measurements.
func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
