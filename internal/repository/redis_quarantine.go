package repository

import (
	"context"

	"SepsisWatch/internal/domain/models"
	"SepsisWatch/internal/domain/repository"
	"SepsisWatch/pkg/queue"
)

// MsgTypeRejectedEvent tags quarantined events on the review queue.
const MsgTypeRejectedEvent = "quarantine.rejected_event"

// RedisQuarantine implements Quarantine on the redis-backed queue, holding
// rejected events for later review and replay.
type RedisQuarantine struct {
	q queue.QueueService
}

// NewRedisQuarantine creates a redis quarantine sink.
func NewRedisQuarantine(q queue.QueueService) repository.Quarantine {
	return &RedisQuarantine{q: q}
}

func (r *RedisQuarantine) Add(ctx context.Context, report *models.QuarantineReport) error {
	return r.q.PublishMessage(ctx, MsgTypeRejectedEvent, report)
}
