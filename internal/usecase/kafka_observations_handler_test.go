package usecase

import (
	"context"
	"errors"
	"testing"

	"SepsisWatch/internal/domain/models"
)

type recordingSink struct {
	events []models.ObservationEvent
	err    error
}

func (s *recordingSink) Process(_ context.Context, ev models.ObservationEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func TestHandleForwardsDecodedEvent(t *testing.T) {
	sink := &recordingSink{}
	h := NewKafkaObservationsHandler("icu.observations", sink, nopMetrics{})

	msg := []byte(`{"patient_id":"P1","admission_id":"A1","timestamp":"2026-03-01T08:15:00Z","vitals":{"heart_rate":118}}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.events) != 1 || sink.events[0].PatientID != "P1" {
		t.Fatalf("event not forwarded: %+v", sink.events)
	}
	if sink.events[0].Vitals["heart_rate"] != 118.0 {
		t.Fatalf("vitals not decoded: %v", sink.events[0].Vitals)
	}
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	sink := &recordingSink{}
	h := NewKafkaObservationsHandler("icu.observations", sink, nopMetrics{})

	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("malformed payload must error for DLQ routing")
	}
	if len(sink.events) != 0 {
		t.Fatalf("malformed payload must not reach the sink")
	}
}

func TestHandleSurfacesSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("warehouse down")}
	h := NewKafkaObservationsHandler("icu.observations", sink, nopMetrics{})

	msg := []byte(`{"patient_id":"P1","admission_id":"A1","timestamp":"2026-03-01T08:15:00Z"}`)
	if err := h.Handle(context.Background(), msg); err == nil {
		t.Fatalf("sink failure must surface for consumer retry")
	}
	if h.Topic() != "icu.observations" {
		t.Fatalf("topic = %q", h.Topic())
	}
}
