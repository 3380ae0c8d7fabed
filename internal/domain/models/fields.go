package models

// Declared vitals/labs, in the fixed order checks and reports are produced.
// This is also the expected-field set the missingness score is computed over.
// Keys outside these lists are ignored everywhere in the pipeline.
var (
	VitalFields = []string{
		"heart_rate",
		"respiratory_rate",
		"systolic_bp",
		"diastolic_bp",
		"temperature_celsius",
		"oxygen_saturation",
	}
	LabFields = []string{
		"lactate_mmol_l",
		"wbc_count",
		"creatinine_mg_dl",
		"platelets",
	}
)

// ExpectedFieldCount is the size of the declared vitals+labs set.
func ExpectedFieldCount() int {
	return len(VitalFields) + len(LabFields)
}
