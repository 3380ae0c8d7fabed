package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"SepsisWatch/internal/domain/models"
	"SepsisWatch/internal/domain/repository"
)

// ClickHouseStorage implements Storage for ClickHouse. Rows land in the
// risk_results fact table, partitioned by event date and ordered by
// patient/admission, which is the contract the dashboards query against.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	return &ClickHouseStorage{db: db, table: table}
}

func (s *ClickHouseStorage) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseStorage) Store(ctx context.Context, r *models.RiskResult) error {
	q := fmt.Sprintf("INSERT INTO %s (event_date, event_time, patient_id, admission_id, ts, risk_score, risk_level, alert, top_contributors, features, flags, missingness_score) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	args, err := rowArgs(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, rs []*models.RiskResult) error {
	if len(rs) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 2000
	for start := 0; start < len(rs); start += chunkSize {
		end := start + chunkSize
		if end > len(rs) {
			end = len(rs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*12)
		for _, r := range rs[start:end] {
			if r == nil || r.PatientID == "" {
				continue
			}
			a, err := rowArgs(r)
			if err != nil {
				return err
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, a...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (event_date, event_time, patient_id, admission_id, ts, risk_score, risk_level, alert, top_contributors, features, flags, missingness_score) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// rowArgs serializes one result into insert arguments. Maps marshal with
// sorted keys, so stored JSON is deterministic for identical inputs.
func rowArgs(r *models.RiskResult) ([]interface{}, error) {
	contributors, err := json.Marshal(r.TopContributors)
	if err != nil {
		return nil, fmt.Errorf("marshal contributors: %w", err)
	}
	features, err := json.Marshal(r.Features)
	if err != nil {
		return nil, fmt.Errorf("marshal features: %w", err)
	}
	flags, err := json.Marshal(r.Flags)
	if err != nil {
		return nil, fmt.Errorf("marshal flags: %w", err)
	}

	alert := uint8(0)
	if r.Alert {
		alert = 1
	}

	return []interface{}{
		r.EventTime,
		r.EventTime,
		r.PatientID,
		r.AdmissionID,
		r.Timestamp,
		r.RiskScore,
		string(r.RiskLevel),
		alert,
		string(contributors),
		string(features),
		string(flags),
		r.MissingnessScore,
	}, nil
}
