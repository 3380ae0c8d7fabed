package repository

import (
	"context"
	"time"

	"SepsisWatch/internal/domain/models"
)

// Publisher emits assessed results (and quarantine reports) onto the bus.
type Publisher interface {
	Publish(ctx context.Context, r *models.RiskResult) error
	PublishBatch(ctx context.Context, rs []*models.RiskResult) error
	PublishQuarantine(ctx context.Context, q *models.QuarantineReport) error
	Close() error
}

// Storage persists assessed results into the warehouse.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, r *models.RiskResult) error
	StoreBatch(ctx context.Context, rs []*models.RiskResult) error
	Health(ctx context.Context) error // ping
	Close() error
}

// ResultStore serves dashboards reading back persisted assessments.
type ResultStore interface {
	Latest(ctx context.Context, patientID string) (*models.RiskResult, error)
	History(ctx context.Context, patientID, admissionID string, from, to time.Time, limit int) ([]models.RiskResult, error)
}

// Quarantine holds rejected events for review and replay.
type Quarantine interface {
	Add(ctx context.Context, q *models.QuarantineReport) error
}

type Metrics interface {
	RecordValidationFailure(code string)
	RecordAssessment(level string, score float64)
	RecordAlert()
	RecordResultSent(backend string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
