package repository

import (
	"context"

	"SepsisWatch/internal/domain/models"
	"SepsisWatch/internal/domain/repository"
	pkgkafka "SepsisWatch/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Results key by patient so a
// patient's assessments stay ordered within a partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	dlqTopic string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic, dlqTopic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic, dlqTopic: dlqTopic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, r *models.RiskResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.PatientID), r)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, rs []*models.RiskResult) error {
	if len(rs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(rs))
	for i, r := range rs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(r.PatientID),
			Value: r,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// PublishQuarantine sends a rejected event report to the dead-letter topic.
func (p *KafkaPublisher) PublishQuarantine(ctx context.Context, q *models.QuarantineReport) error {
	if p.dlqTopic == "" {
		return nil
	}
	return p.producer.Publish(ctx, p.dlqTopic, []byte(q.Event.PatientID), q)
}

// KafkaQuarantine implements Quarantine on the dead-letter topic. Used when
// no Redis review queue is configured, so rejected events still land
// somewhere inspectable.
type KafkaQuarantine struct {
	pub repository.Publisher
}

// NewKafkaQuarantine creates a dead-letter quarantine sink.
func NewKafkaQuarantine(pub repository.Publisher) repository.Quarantine {
	return &KafkaQuarantine{pub: pub}
}

func (k *KafkaQuarantine) Add(ctx context.Context, q *models.QuarantineReport) error {
	return k.pub.PublishQuarantine(ctx, q)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
