package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SepsisWatch/internal/domain/models"
	domrepo "SepsisWatch/internal/domain/repository"
)

// Proc is the minimal processor interface the intake buffer needs.
type Proc interface {
	Process(ctx context.Context, ev models.ObservationEvent) error
}

// IntakeBuffer sits between the observation consumer and the pipeline.
// It throttles per-patient bursts (duplicate monitor feeds, replays) and
// buffers events when the downstream sink is unavailable, retrying with
// backoff instead of dropping on the floor.
type IntakeBuffer struct {
	proc    Proc
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan models.ObservationEvent
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	// per-patient last accepted time
	lastSeen map[string]time.Time
}

type IntakeOption func(*IntakeBuffer)

// WithMaxRPS sets the max events per second per patient.
func WithMaxRPS(n int) IntakeOption {
	return func(b *IntakeBuffer) {
		if n > 0 {
			b.maxRPS = n
		}
	}
}

// WithBufferSize sets the holding buffer size used when downstream fails.
func WithBufferSize(n int) IntakeOption {
	return func(b *IntakeBuffer) {
		if n > 0 {
			b.bufSize = n
		}
	}
}

// NewIntakeBuffer creates an intake buffer in front of proc.
func NewIntakeBuffer(proc Proc, metrics domrepo.Metrics, opts ...IntakeOption) *IntakeBuffer {
	b := &IntakeBuffer{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   50,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.bufCh = make(chan models.ObservationEvent, b.bufSize)
	return b
}

// Start launches background flushing of buffered events.
func (b *IntakeBuffer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-b.stopCh:
				return
			case ev := <-b.bufCh:
				if err := b.proc.Process(ctx, ev); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					b.metrics.RecordError("intake_flush")
					time.Sleep(backoff)
					select {
					case b.bufCh <- ev:
					default:
						b.metrics.RecordError("intake_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (b *IntakeBuffer) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()
	close(b.stopCh)
}

// Process throttles and forwards an event downstream, buffering on sink
// errors. Throttled events are dropped silently after a metrics tick.
func (b *IntakeBuffer) Process(ctx context.Context, ev models.ObservationEvent) error {
	start := time.Now()

	if !b.allow(patientKey(ev), start) {
		b.metrics.RecordError("intake_throttle")
		return nil
	}

	if err := b.proc.Process(ctx, ev); err != nil {
		b.metrics.RecordError("intake_process")
		select {
		case b.bufCh <- ev:
			b.metrics.RecordLatency("intake_buffer_depth", float64(len(b.bufCh)))
		default:
			b.metrics.RecordError("intake_buffer_full")
		}
		return fmt.Errorf("intake downstream: %w", err)
	}
	b.metrics.RecordLatency("intake_process", time.Since(start).Seconds())
	return nil
}

func patientKey(ev models.ObservationEvent) string {
	if ev.PatientID != "" {
		return ev.PatientID
	}
	return "unknown"
}

func (b *IntakeBuffer) allow(patient string, now time.Time) bool {
	if b.maxRPS <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	last := b.lastSeen[patient]
	if last.IsZero() || now.Sub(last) >= time.Second/time.Duration(b.maxRPS) {
		b.lastSeen[patient] = now
		return true
	}
	return false
}
