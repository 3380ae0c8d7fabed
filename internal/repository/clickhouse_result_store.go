package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"SepsisWatch/internal/domain/models"
	domrepo "SepsisWatch/internal/domain/repository"
	pkgch "SepsisWatch/pkg/clickhouse"
	applogger "SepsisWatch/pkg/logger"
)

// CHResultStore implements ResultStore backed by ClickHouse.
type CHResultStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client, table string) *CHResultStore {
	return &CHResultStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHResultStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHResultStore) Latest(ctx context.Context, patientID string) (*models.RiskResult, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT patient_id, admission_id, ts, event_time, risk_score, risk_level, alert, top_contributors, features, flags, missingness_score
        FROM %s
        WHERE patient_id = ?
        ORDER BY event_time DESC
        LIMIT 1
    `, s.table)

	row := s.db.QueryRowContext(ctx, q, patientID)
	r, err := scanResult(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		if s.l != nil {
			s.l.Error("clickhouse latest_result error",
				applogger.String("patient_id", patientID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("latest result: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse latest_result ok",
			applogger.String("patient_id", patientID),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return r, nil
}

func (s *CHResultStore) History(ctx context.Context, patientID, admissionID string, from, to time.Time, limit int) ([]models.RiskResult, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT patient_id, admission_id, ts, event_time, risk_score, risk_level, alert, top_contributors, features, flags, missingness_score
        FROM %s
        WHERE patient_id = ? AND (? = '' OR admission_id = ?) AND event_time >= ? AND event_time <= ?
        ORDER BY event_time DESC
        LIMIT ?
    `, s.table)

	rows, err := s.db.QueryContext(ctx, q, patientID, admissionID, admissionID, from, to, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse history query error",
				applogger.String("patient_id", patientID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("result history: %w", err)
	}
	defer rows.Close()

	out := make([]models.RiskResult, 0, 64)
	for rows.Next() {
		r, err := scanResult(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Info("clickhouse history ok",
			applogger.String("patient_id", patientID),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func scanResult(scan func(...interface{}) error) (*models.RiskResult, error) {
	var (
		r             models.RiskResult
		level         string
		alert         uint8
		contributors  string
		featuresJSON  string
		flagsJSON     string
		eventTime     time.Time
	)
	if err := scan(&r.PatientID, &r.AdmissionID, &r.Timestamp, &eventTime, &r.RiskScore, &level, &alert, &contributors, &featuresJSON, &flagsJSON, &r.MissingnessScore); err != nil {
		return nil, err
	}
	r.EventTime = eventTime
	r.RiskLevel = models.RiskLevel(level)
	r.Alert = alert != 0
	if err := json.Unmarshal([]byte(contributors), &r.TopContributors); err != nil {
		return nil, fmt.Errorf("decode contributors: %w", err)
	}
	if err := json.Unmarshal([]byte(featuresJSON), &r.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	if err := json.Unmarshal([]byte(flagsJSON), &r.Flags); err != nil {
		return nil, fmt.Errorf("decode flags: %w", err)
	}
	return &r, nil
}

var _ domrepo.ResultStore = (*CHResultStore)(nil)
