package features

import (
	"fmt"

	"SepsisWatch/internal/domain/models"
)

// Thresholds are the named clinical cutoffs the binary flags are evaluated
// against. All values come from configuration; none are hard-coded at call
// sites.
type Thresholds struct {
	TachycardiaHR  float64
	TachypneaRR    float64
	HypotensionSBP float64
	LowMAP         float64
	FeverC         float64
	HypothermiaC   float64
	LowSpO2        float64
	HighLactate    float64
	HighWBC        float64
	LowPlatelets   float64
	HighCreatinine float64
	ShockIndexHigh float64
}

// ThresholdsFromConfig maps the declarative threshold table into the typed
// set, rejecting unknown names so typos fail at startup instead of silently
// falling back.
func ThresholdsFromConfig(m map[string]float64) (Thresholds, error) {
	t := Thresholds{}
	known := map[string]*float64{
		"tachycardia_hr":   &t.TachycardiaHR,
		"tachypnea_rr":     &t.TachypneaRR,
		"hypotension_sbp":  &t.HypotensionSBP,
		"low_map":          &t.LowMAP,
		"fever_c":          &t.FeverC,
		"hypothermia_c":    &t.HypothermiaC,
		"low_spo2":         &t.LowSpO2,
		"high_lactate":     &t.HighLactate,
		"high_wbc":         &t.HighWBC,
		"low_platelets":    &t.LowPlatelets,
		"high_creatinine":  &t.HighCreatinine,
		"shock_index_high": &t.ShockIndexHigh,
	}
	seen := make(map[string]bool, len(known))
	for name, v := range m {
		dst, ok := known[name]
		if !ok {
			return t, fmt.Errorf("unknown threshold %q", name)
		}
		*dst = v
		seen[name] = true
	}
	for name := range known {
		if !seen[name] {
			return t, fmt.Errorf("threshold %q is required", name)
		}
	}
	return t, nil
}

// Physiological clamp ranges applied to in-range-but-borderline values before
// derivation. Plausibility rejection already happened in validation.
type clampRange struct{ lo, hi float64 }

var clamps = map[string]clampRange{
	"heart_rate":          {20, 250},
	"respiratory_rate":    {5, 80},
	"systolic_bp":         {40, 250},
	"diastolic_bp":        {20, 150},
	"temperature_celsius": {30, 43},
	"oxygen_saturation":   {50, 100},
	"lactate_mmol_l":      {0, 20},
	"wbc_count":           {0, 60},
	"creatinine_mg_dl":    {0, 20},
	"platelets":           {0, 1500},
}

// Engine derives clinical signals and abnormality flags from validated
// events. Derive is pure and total: missing inputs reduce feature coverage
// and raise the missingness score, they never fail.
type Engine struct {
	t Thresholds
}

func NewEngine(t Thresholds) *Engine {
	return &Engine{t: t}
}

// Derive builds the feature record for one validated event. Identity fields
// are copied from the source, never recomputed.
func (e *Engine) Derive(ev *models.ValidatedEvent) *models.FeatureRecord {
	feats := make(map[string]float64, models.ExpectedFieldCount()+2)

	missing := 0
	for _, name := range models.VitalFields {
		if v, ok := ev.Vitals[name]; ok {
			feats[name] = clamp(name, v)
		} else {
			missing++
		}
	}
	for _, name := range models.LabFields {
		if v, ok := ev.Labs[name]; ok {
			feats[name] = clamp(name, v)
		} else {
			missing++
		}
	}

	hr, hasHR := feats["heart_rate"]
	rr, hasRR := feats["respiratory_rate"]
	sbp, hasSBP := feats["systolic_bp"]
	dbp, hasDBP := feats["diastolic_bp"]
	temp, hasTemp := feats["temperature_celsius"]
	spo2, hasSpO2 := feats["oxygen_saturation"]
	lactate, hasLactate := feats["lactate_mmol_l"]
	wbc, hasWBC := feats["wbc_count"]
	creat, hasCreat := feats["creatinine_mg_dl"]
	plt, hasPlt := feats["platelets"]

	// MAP = DBP + (SBP - DBP)/3; absent when either pressure is missing.
	mapVal, hasMAP := 0.0, false
	if hasSBP && hasDBP {
		mapVal = dbp + (sbp-dbp)/3
		feats["map"] = mapVal
		hasMAP = true
	}

	// Shock index = HR/SBP, guarded against division by zero.
	shock, hasShock := 0.0, false
	if hasHR && hasSBP && sbp > 0 {
		shock = hr / sbp
		feats["shock_index"] = shock
		hasShock = true
	}

	flags := map[string]bool{
		models.FlagTachycardia:    hasHR && hr >= e.t.TachycardiaHR,
		models.FlagTachypnea:      hasRR && rr >= e.t.TachypneaRR,
		models.FlagHypotension:    hasSBP && sbp <= e.t.HypotensionSBP,
		models.FlagLowMAP:         hasMAP && mapVal < e.t.LowMAP,
		models.FlagFever:          hasTemp && temp >= e.t.FeverC,
		models.FlagHypothermia:    hasTemp && temp <= e.t.HypothermiaC,
		models.FlagLowSpO2:        hasSpO2 && spo2 < e.t.LowSpO2,
		models.FlagHighLactate:    hasLactate && lactate >= e.t.HighLactate,
		models.FlagHighWBC:        hasWBC && wbc >= e.t.HighWBC,
		models.FlagLowPlatelets:   hasPlt && plt < e.t.LowPlatelets,
		models.FlagHighCreatinine: hasCreat && creat >= e.t.HighCreatinine,
		models.FlagShockIndexHigh: hasShock && shock >= e.t.ShockIndexHigh,
	}

	return &models.FeatureRecord{
		PatientID:        ev.PatientID,
		AdmissionID:      ev.AdmissionID,
		Timestamp:        ev.Timestamp,
		EventTime:        ev.EventTime,
		Features:         feats,
		Flags:            flags,
		MissingnessScore: float64(missing) / float64(models.ExpectedFieldCount()),
	}
}

func clamp(name string, v float64) float64 {
	r, ok := clamps[name]
	if !ok {
		return v
	}
	if v < r.lo {
		return r.lo
	}
	if v > r.hi {
		return r.hi
	}
	return v
}
