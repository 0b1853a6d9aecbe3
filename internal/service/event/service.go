package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/logger"
)

const defaultRetention = 24 * time.Hour

// Service writes events to the transactional outbox. Relay to the broker
// happens in pkg/worker.OutboxProcessor.
type Service struct {
	outboxRepo repository.OutboxRepository
	logger     *logger.Logger
	retention  time.Duration
	now        func() time.Time
}

func NewService(outboxRepo repository.OutboxRepository, log *logger.Logger, retention time.Duration) *Service {
	if retention <= 0 {
		retention = defaultRetention
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		outboxRepo: outboxRepo,
		logger:     log,
		retention:  retention,
		now:        time.Now,
	}
}

func (s *Service) Emit(ctx context.Context, eventType, aggregateID string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payloadJSON,
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	s.logger.Debug("event emitted", "event_id", event.ID, "event_type", eventType, "aggregate_id", aggregateID)
	return nil
}

// CleanupProcessedEvents deletes relayed events older than the retention.
func (s *Service) CleanupProcessedEvents(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	count, err := s.outboxRepo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup events: %w", err)
	}

	s.logger.Info("processed events cleaned up", "deleted_count", count, "cutoff", cutoff)
	return count, nil
}
