// Package ingest loads ICU observation files (JSON object, JSON array or
// JSONL) and normalizes field aliases into the internal event contract. It
// maps and renames only; clinical validation happens in the pipeline so
// rejects carry proper error codes.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"SepsisWatch/internal/domain/models"
)

// Stats summarizes one file ingestion.
type Stats struct {
	Total       int            `json:"total"`
	Parsed      int            `json:"parsed"`
	Dropped     int            `json:"dropped"`
	DropReasons map[string]int `json:"drop_reasons,omitempty"`
}

// LoadFile reads events from a JSON or JSONL file and normalizes them.
// Records that are not JSON objects are dropped and counted, not fatal.
func LoadFile(path string) ([]models.ObservationEvent, *Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	stats := &Stats{DropReasons: map[string]int{}}
	var events []models.ObservationEvent

	if strings.HasSuffix(strings.ToLower(path), ".jsonl") {
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			stats.Total++
			var raw map[string]interface{}
			if err := json.Unmarshal([]byte(line), &raw); err != nil {
				stats.Dropped++
				stats.DropReasons["unparseable_line"]++
				continue
			}
			events = append(events, Normalize(raw))
			stats.Parsed++
		}
		if err := sc.Err(); err != nil {
			return nil, nil, fmt.Errorf("read jsonl: %w", err)
		}
		return events, stats, nil
	}

	var payload interface{}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("parse input: %w", err)
	}

	switch p := payload.(type) {
	case map[string]interface{}:
		stats.Total, stats.Parsed = 1, 1
		events = append(events, Normalize(p))
	case []interface{}:
		for _, item := range p {
			stats.Total++
			raw, ok := item.(map[string]interface{})
			if !ok {
				stats.Dropped++
				stats.DropReasons["not_an_object"]++
				continue
			}
			events = append(events, Normalize(raw))
			stats.Parsed++
		}
	default:
		return nil, nil, fmt.Errorf("input JSON must be an object or list of objects")
	}

	return events, stats, nil
}

// Normalize maps a raw record onto the internal event schema, resolving the
// aliases bedside exports commonly use. It creates no clinical facts.
func Normalize(raw map[string]interface{}) models.ObservationEvent {
	ev := models.ObservationEvent{
		PatientID:   firstString(raw, "patient_id", "patientId", "pt_id"),
		AdmissionID: firstString(raw, "admission_id", "admissionId", "visit_id"),
		Timestamp:   firstString(raw, "timestamp", "ts", "event_time"),
	}

	ev.Vitals = section(raw, "vitals")
	if len(ev.Vitals) == 0 {
		ev.Vitals = flatSection(raw, map[string][]string{
			"heart_rate":          {"heart_rate", "hr"},
			"respiratory_rate":    {"respiratory_rate", "rr"},
			"systolic_bp":         {"systolic_bp", "sbp"},
			"diastolic_bp":        {"diastolic_bp", "dbp"},
			"temperature_celsius": {"temperature_celsius", "temp_c"},
			"oxygen_saturation":   {"oxygen_saturation", "spo2"},
		})
	}

	ev.Labs = section(raw, "labs")
	if len(ev.Labs) == 0 {
		ev.Labs = flatSection(raw, map[string][]string{
			"lactate_mmol_l":   {"lactate_mmol_l", "lactate"},
			"wbc_count":        {"wbc_count", "wbc"},
			"creatinine_mg_dl": {"creatinine_mg_dl", "creatinine"},
			"platelets":        {"platelets", "plt"},
		})
	}

	if md, ok := raw["metadata"].(map[string]interface{}); ok {
		ev.Metadata = md
	} else {
		ev.Metadata = map[string]interface{}{}
	}

	return ev
}

func firstString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			// Unix-second timestamps arrive as JSON numbers in some exports.
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}

func section(raw map[string]interface{}, key string) map[string]interface{} {
	if m, ok := raw[key].(map[string]interface{}); ok && len(m) > 0 {
		return m
	}
	return map[string]interface{}{}
}

// flatSection recovers measurements stored as top-level fields; only keys
// that actually exist are carried over, so missingness stays truthful.
func flatSection(raw map[string]interface{}, aliases map[string][]string) map[string]interface{} {
	out := map[string]interface{}{}
	for canonical, names := range aliases {
		for _, n := range names {
			if v, ok := raw[n]; ok && v != nil {
				out[canonical] = v
				break
			}
		}
	}
	return out
}
