package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestNormalizeAliases(t *testing.T) {
	raw := map[string]interface{}{
		"patientId": "P001",
		"visit_id":  "A100",
		"ts":        "2026-03-01T08:15:00Z",
		"hr":        118.0,
		"sbp":       92.0,
		"dbp":       58.0,
		"lactate":   2.6,
	}

	ev := Normalize(raw)
	if ev.PatientID != "P001" || ev.AdmissionID != "A100" {
		t.Fatalf("identity aliases not resolved: %+v", ev)
	}
	if ev.Timestamp != "2026-03-01T08:15:00Z" {
		t.Fatalf("timestamp alias not resolved: %q", ev.Timestamp)
	}
	if ev.Vitals["heart_rate"] != 118.0 || ev.Vitals["systolic_bp"] != 92.0 {
		t.Fatalf("flat vitals not recovered: %v", ev.Vitals)
	}
	if ev.Labs["lactate_mmol_l"] != 2.6 {
		t.Fatalf("flat labs not recovered: %v", ev.Labs)
	}
	if _, ok := ev.Vitals["respiratory_rate"]; ok {
		t.Fatalf("absent fields must stay absent, got %v", ev.Vitals)
	}
}

func TestNormalizeNumericUnixTimestamp(t *testing.T) {
	ev := Normalize(map[string]interface{}{
		"patient_id":   "P010",
		"admission_id": "A010",
		"ts":           1767257700.0,
	})
	if ev.Timestamp != "1767257700" {
		t.Fatalf("numeric unix timestamp not stringified: %q", ev.Timestamp)
	}
}

func TestNormalizePrefersCanonicalNames(t *testing.T) {
	raw := map[string]interface{}{
		"patient_id": "P-canonical",
		"patientId":  "P-alias",
		"vitals": map[string]interface{}{
			"heart_rate": 90.0,
		},
		"hr": 140.0, // ignored: nested section wins over flat aliases
	}

	ev := Normalize(raw)
	if ev.PatientID != "P-canonical" {
		t.Fatalf("canonical key must win, got %q", ev.PatientID)
	}
	if ev.Vitals["heart_rate"] != 90.0 {
		t.Fatalf("nested section must win over flat alias: %v", ev.Vitals)
	}
}

func TestLoadFileJSONArray(t *testing.T) {
	path := writeFile(t, "events.json", `[
		{"patient_id": "P1", "admission_id": "A1", "timestamp": "2026-03-01T08:00:00Z"},
		"not an object",
		{"patient_id": "P2", "admission_id": "A2", "timestamp": "2026-03-01T08:05:00Z"}
	]`)

	events, stats, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if stats.Total != 3 || stats.Parsed != 2 || stats.Dropped != 1 {
		t.Fatalf("stats %+v", stats)
	}
	if stats.DropReasons["not_an_object"] != 1 {
		t.Fatalf("drop reasons %+v", stats.DropReasons)
	}
}

func TestLoadFileSingleObject(t *testing.T) {
	path := writeFile(t, "event.json", `{"patient_id": "P1", "admission_id": "A1", "timestamp": "2026-03-01T08:00:00Z"}`)

	events, stats, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 1 || stats.Parsed != 1 {
		t.Fatalf("events=%d stats=%+v", len(events), stats)
	}
}

func TestLoadFileJSONL(t *testing.T) {
	path := writeFile(t, "events.jsonl",
		`{"patient_id": "P1", "admission_id": "A1", "timestamp": "2026-03-01T08:00:00Z", "hr": 110}

garbage line
{"patient_id": "P2", "admission_id": "A2", "timestamp": "2026-03-01T08:05:00Z"}
`)

	events, stats, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if stats.Total != 3 || stats.Dropped != 1 {
		t.Fatalf("stats %+v (blank lines must not count)", stats)
	}
	if events[0].Vitals["heart_rate"] == nil {
		t.Fatalf("flat vitals not normalized in jsonl: %v", events[0].Vitals)
	}
}

func TestLoadFileScalarRoot(t *testing.T) {
	path := writeFile(t, "bad.json", `42`)
	if _, _, err := LoadFile(path); err == nil {
		t.Fatalf("scalar root must be an error")
	}
}
