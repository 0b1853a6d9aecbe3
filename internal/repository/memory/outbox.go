package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

type OutboxRepository struct {
	mu     sync.Mutex
	events map[string]*model.OutboxEvent
	now    func() time.Time
}

// NewOutboxRepository returns the concrete type so tests can inspect events.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{
		events: make(map[string]*model.OutboxEvent),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)

func (r *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := r.now()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Status = model.OutboxStatusPending

	stored := *event
	r.events[event.ID] = &stored
	return nil
}

func (r *OutboxRepository) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var due []*model.OutboxEvent
	for _, evt := range r.events {
		if evt.Status != model.OutboxStatusPending {
			continue
		}
		if evt.RetryAt != nil && evt.RetryAt.After(now) {
			continue
		}
		due = append(due, evt)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]*model.OutboxEvent, 0, len(due))
	for _, evt := range due {
		evt.Status = model.OutboxStatusProcessing
		evt.UpdatedAt = now
		cp := *evt
		out = append(out, &cp)
	}
	return out, nil
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt, ok := r.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := r.now()
	evt.Status = model.OutboxStatusProcessed
	evt.ProcessedAt = &now
	evt.UpdatedAt = now
	evt.ErrorMessage = nil
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, errorMessage string, retryAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt, ok := r.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	evt.RetryCount++
	evt.ErrorMessage = &errorMessage
	evt.RetryAt = retryAt
	evt.UpdatedAt = r.now()
	if retryAt == nil {
		evt.Status = model.OutboxStatusFailed
	} else {
		evt.Status = model.OutboxStatusPending
	}
	return nil
}

func (r *OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, evt := range r.events {
		if evt.Status == model.OutboxStatusProcessed && evt.ProcessedAt != nil && evt.ProcessedAt.Before(before) {
			delete(r.events, id)
			n++
		}
	}
	return n, nil
}

// Events returns a snapshot ordered by creation time.
func (r *OutboxRepository) Events() []model.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.OutboxEvent, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, *evt)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// EventsOfType filters Events by type.
func (r *OutboxRepository) EventsOfType(eventType string) []model.OutboxEvent {
	var out []model.OutboxEvent
	for _, evt := range r.Events() {
		if evt.EventType == eventType {
			out = append(out, evt)
		}
	}
	return out
}
