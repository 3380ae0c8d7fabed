package usecase

import (
	"context"
	"fmt"
	"time"

	"SepsisWatch/internal/domain/models"
	drepo "SepsisWatch/internal/domain/repository"
)

// AlertNotifier pushes alerting assessments to live dashboard subscribers.
type AlertNotifier interface {
	NotifyAlert(r *models.RiskResult)
}

// EventProcessor runs the pipeline on raw events and routes results to the
// configured backend. Rejected events go to the quarantine sink instead of
// crashing the flow.
type EventProcessor struct {
	pipe       *Pipeline
	pub        drepo.Publisher
	store      drepo.Storage
	quarantine drepo.Quarantine
	notifier   AlertNotifier
	metrics    drepo.Metrics
	backend    string
	batchSz    int
	batchTO    time.Duration
}

// NewEventProcessor creates a new EventProcessor instance.
func NewEventProcessor(
	pipe *Pipeline,
	pub drepo.Publisher,
	store drepo.Storage,
	quarantine drepo.Quarantine,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *EventProcessor {
	return &EventProcessor{
		pipe:       pipe,
		pub:        pub,
		store:      store,
		quarantine: quarantine,
		metrics:    metrics,
		backend:    backend,
		batchSz:    batchSz,
		batchTO:    batchTO,
	}
}

// SetNotifier wires the live alert feed; optional.
func (p *EventProcessor) SetNotifier(n AlertNotifier) { p.notifier = n }

// Process assesses a single event and routes the result to the configured
// backend. A non-empty error set means the event was rejected (and
// quarantined); the pipeline itself never fails past validation.
func (p *EventProcessor) Process(ctx context.Context, raw models.ObservationEvent) (*models.RiskResult, models.ValidationErrors, error) {
	start := time.Now()

	result, verrs := p.pipe.Run(ctx, raw)
	if len(verrs) > 0 {
		if p.quarantine != nil {
			if qerr := p.quarantine.Add(ctx, &models.QuarantineReport{Event: raw, Errors: verrs}); qerr != nil {
				p.metrics.RecordError("quarantine")
			}
		}
		return nil, verrs, nil
	}

	p.metrics.RecordAssessment(string(result.RiskLevel), result.RiskScore)
	if result.Alert {
		p.metrics.RecordAlert()
		if p.notifier != nil {
			p.notifier.NotifyAlert(result)
		}
	}

	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, result)
	case "clickhouse":
		err = p.store.Store(ctx, result)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process")
		return result, nil, fmt.Errorf("process event: %w", err)
	}

	p.metrics.RecordResultSent(p.backend)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	if !result.EventTime.IsZero() {
		// E2E lag from observation time to assessment (approx).
		p.metrics.RecordLatency("observation_lag_seconds", time.Since(result.EventTime).Seconds())
	}

	return result, nil, nil
}

// ObservationSink accepts raw observation events for processing. The intake
// buffer and the Kafka handler both speak this shape.
type ObservationSink interface {
	Process(ctx context.Context, ev models.ObservationEvent) error
}

type processorSink struct{ p *EventProcessor }

// SinkFromProcessor adapts the processor to ObservationSink, dropping the
// per-event result. Validation failures are quarantined inside Process and do
// not surface as errors here.
func SinkFromProcessor(p *EventProcessor) ObservationSink { return processorSink{p: p} }

func (s processorSink) Process(ctx context.Context, ev models.ObservationEvent) error {
	_, _, err := s.p.Process(ctx, ev)
	return err
}

// ProcessBatch assesses a batch of events. Results go to the backend in one
// batched write; rejected events are returned as quarantine reports (and sent
// to the quarantine sink). Events are independent, so order carries no
// meaning beyond the input order.
func (p *EventProcessor) ProcessBatch(ctx context.Context, raws []models.ObservationEvent) ([]*models.RiskResult, []models.QuarantineReport, error) {
	if len(raws) == 0 {
		return nil, nil, nil
	}

	start := time.Now()
	results := make([]*models.RiskResult, 0, len(raws))
	rejected := make([]models.QuarantineReport, 0)

	for _, raw := range raws {
		result, verrs := p.pipe.Run(ctx, raw)
		if len(verrs) > 0 {
			report := models.QuarantineReport{Event: raw, Errors: verrs}
			rejected = append(rejected, report)
			if p.quarantine != nil {
				if qerr := p.quarantine.Add(ctx, &report); qerr != nil {
					p.metrics.RecordError("quarantine")
				}
			}
			continue
		}
		p.metrics.RecordAssessment(string(result.RiskLevel), result.RiskScore)
		if result.Alert {
			p.metrics.RecordAlert()
			if p.notifier != nil {
				p.notifier.NotifyAlert(result)
			}
		}
		results = append(results, result)
	}

	if len(results) > 0 {
		var err error
		switch p.backend {
		case "kafka":
			err = p.pub.PublishBatch(ctx, results)
		case "clickhouse":
			err = p.store.StoreBatch(ctx, results)
		default:
			err = fmt.Errorf("unknown backend: %s", p.backend)
		}
		if err != nil {
			p.metrics.RecordError("process_batch")
			return results, rejected, fmt.Errorf("process batch: %w", err)
		}
		for range results {
			p.metrics.RecordResultSent(p.backend)
		}
	}

	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return results, rejected, nil
}

// Close closes underlying resources if available.
func (p *EventProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
