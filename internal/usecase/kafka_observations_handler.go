package usecase

import (
	"context"
	"encoding/json"
	"time"

	"SepsisWatch/internal/domain/models"
	domrepo "SepsisWatch/internal/domain/repository"
	pkgkafka "SepsisWatch/pkg/kafka"
)

// KafkaObservationsHandler consumes raw observation events from Kafka and
// feeds them into the assessment sink (normally the intake buffer in front of
// the event processor).
type KafkaObservationsHandler struct {
	topic   string
	sink    ObservationSink
	metrics domrepo.Metrics
}

func NewKafkaObservationsHandler(topic string, sink ObservationSink, metrics domrepo.Metrics) *KafkaObservationsHandler {
	return &KafkaObservationsHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *KafkaObservationsHandler) Topic() string { return h.topic }

// Handle processes one observation message. Schema-invalid events are
// quarantined inside the processor and do not return an error; returning one
// here would only trigger pointless redelivery of a permanently bad payload.
func (h *KafkaObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.ObservationEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	start := time.Now()
	err := h.sink.Process(ctx, ev)
	h.metrics.RecordLatency("assess_e2e_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_process")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaObservationsHandler)(nil)
