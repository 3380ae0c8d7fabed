package usecase

import (
	"context"
	"testing"
	"time"

	"SepsisWatch/internal/domain/models"
)

type memStorage struct {
	stored  []*models.RiskResult
	batches int
}

func (s *memStorage) Init(context.Context) error   { return nil }
func (s *memStorage) Health(context.Context) error { return nil }
func (s *memStorage) Close() error                 { return nil }
func (s *memStorage) Store(_ context.Context, r *models.RiskResult) error {
	s.stored = append(s.stored, r)
	return nil
}
func (s *memStorage) StoreBatch(_ context.Context, rs []*models.RiskResult) error {
	s.stored = append(s.stored, rs...)
	s.batches++
	return nil
}

type memQuarantine struct {
	reports []*models.QuarantineReport
}

func (q *memQuarantine) Add(_ context.Context, r *models.QuarantineReport) error {
	q.reports = append(q.reports, r)
	return nil
}

type memNotifier struct {
	alerts []*models.RiskResult
}

func (n *memNotifier) NotifyAlert(r *models.RiskResult) { n.alerts = append(n.alerts, r) }

func testProcessor(t *testing.T) (*EventProcessor, *memStorage, *memQuarantine, *memNotifier) {
	t.Helper()
	pipe := testPipeline(t, nil)
	store := &memStorage{}
	quarantine := &memQuarantine{}
	notifier := &memNotifier{}
	proc := NewEventProcessor(pipe, nil, store, quarantine, nopMetrics{}, "clickhouse", 100, time.Second)
	proc.SetNotifier(notifier)
	return proc, store, quarantine, notifier
}

func TestProcessStoresAndNotifies(t *testing.T) {
	proc, store, quarantine, notifier := testProcessor(t)

	result, verrs, err := proc.Process(context.Background(), sampleEvent())
	if err != nil || len(verrs) != 0 {
		t.Fatalf("unexpected failure: err=%v verrs=%v", err, verrs)
	}
	if len(store.stored) != 1 || store.stored[0] != result {
		t.Fatalf("result not stored")
	}
	if len(quarantine.reports) != 0 {
		t.Fatalf("nothing should be quarantined")
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("alerting assessment must notify, got %d", len(notifier.alerts))
	}
}

func TestProcessQuarantinesRejectedEvent(t *testing.T) {
	proc, store, quarantine, notifier := testProcessor(t)

	ev := sampleEvent()
	ev.PatientID = ""
	result, verrs, err := proc.Process(context.Background(), ev)
	if err != nil {
		t.Fatalf("rejection is not an error: %v", err)
	}
	if result != nil {
		t.Fatalf("no result expected, got %+v", result)
	}
	if len(verrs) != 1 || verrs[0].Code != models.CodeMissingPatientID {
		t.Fatalf("unexpected errors: %v", verrs)
	}
	if len(quarantine.reports) != 1 {
		t.Fatalf("rejected event must be quarantined")
	}
	if len(store.stored) != 0 || len(notifier.alerts) != 0 {
		t.Fatalf("rejected event must not reach sinks")
	}
}

func TestProcessBatchSplitsResultsAndRejects(t *testing.T) {
	proc, store, quarantine, _ := testProcessor(t)

	bad := sampleEvent()
	bad.Timestamp = "yesterday-ish"
	results, rejected, err := proc.ProcessBatch(context.Background(), []models.ObservationEvent{
		sampleEvent(), bad, sampleEvent(),
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != 2 || len(rejected) != 1 {
		t.Fatalf("results=%d rejected=%d", len(results), len(rejected))
	}
	if store.batches != 1 || len(store.stored) != 2 {
		t.Fatalf("batch must store in one write: batches=%d stored=%d", store.batches, len(store.stored))
	}
	if len(quarantine.reports) != 1 {
		t.Fatalf("rejects must be quarantined from batches too")
	}
	if rejected[0].Errors[0].Code != models.CodeMissingTimestamp {
		t.Fatalf("unexpected reject: %v", rejected[0].Errors)
	}
}

func TestProcessUnknownBackend(t *testing.T) {
	pipe := testPipeline(t, nil)
	proc := NewEventProcessor(pipe, nil, &memStorage{}, nil, nopMetrics{}, "carrier-pigeon", 1, time.Second)

	_, _, err := proc.Process(context.Background(), sampleEvent())
	if err == nil {
		t.Fatalf("unknown backend must fail")
	}
}

func TestSinkFromProcessorSwallowsValidationFailures(t *testing.T) {
	proc, _, quarantine, _ := testProcessor(t)
	sink := SinkFromProcessor(proc)

	ev := sampleEvent()
	ev.PatientID = ""
	if err := sink.Process(context.Background(), ev); err != nil {
		t.Fatalf("validation failure must not surface as a sink error: %v", err)
	}
	if len(quarantine.reports) != 1 {
		t.Fatalf("event must still be quarantined")
	}
}
