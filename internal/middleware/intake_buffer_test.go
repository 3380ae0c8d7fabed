package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SepsisWatch/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordValidationFailure(string)   {}
func (nopMetrics) RecordAssessment(string, float64) {}
func (nopMetrics) RecordAlert()                     {}
func (nopMetrics) RecordResultSent(string)          {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordLatency(string, float64)    {}

type recordingProc struct {
	mu     sync.Mutex
	events []models.ObservationEvent
	err    error
}

func (p *recordingProc) Process(_ context.Context, ev models.ObservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func event(patient string) models.ObservationEvent {
	return models.ObservationEvent{PatientID: patient}
}

func TestIntakeForwardsEvents(t *testing.T) {
	proc := &recordingProc{}
	buf := NewIntakeBuffer(proc, nopMetrics{})

	if err := buf.Process(context.Background(), event("P1")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("event not forwarded")
	}
}

func TestIntakeThrottlesPerPatient(t *testing.T) {
	proc := &recordingProc{}
	buf := NewIntakeBuffer(proc, nopMetrics{}, WithMaxRPS(1))

	// Second event for the same patient inside the window is dropped silently.
	if err := buf.Process(context.Background(), event("P1")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := buf.Process(context.Background(), event("P1")); err != nil {
		t.Fatalf("throttled events must not error: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("second event inside window must be throttled, got %d", proc.count())
	}

	// A different patient is unaffected.
	if err := buf.Process(context.Background(), event("P2")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if proc.count() != 2 {
		t.Fatalf("other patients must not share the throttle")
	}
}

func TestIntakeForwardsLateEventsAfterStop(t *testing.T) {
	proc := &recordingProc{}
	buf := NewIntakeBuffer(proc, nopMetrics{})
	buf.Start(context.Background())
	buf.Stop()

	// In-flight consumer deliveries can still arrive after the flush loop
	// stops; they must be forwarded, not dropped.
	if err := buf.Process(context.Background(), event("P9")); err != nil {
		t.Fatalf("late delivery after stop must still forward: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("late event not forwarded")
	}
}

func TestIntakeBuffersOnDownstreamFailure(t *testing.T) {
	proc := &recordingProc{err: errors.New("sink down")}
	buf := NewIntakeBuffer(proc, nopMetrics{}, WithBufferSize(4))

	if err := buf.Process(context.Background(), event("P1")); err == nil {
		t.Fatalf("downstream failure must surface")
	}
	if len(buf.bufCh) != 1 {
		t.Fatalf("failed event must be buffered, depth=%d", len(buf.bufCh))
	}

	// Downstream recovers; background flush drains the buffer.
	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	buf.Start(ctx)
	defer buf.Stop()

	deadline := time.After(3 * time.Second)
	for proc.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("buffered event never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
