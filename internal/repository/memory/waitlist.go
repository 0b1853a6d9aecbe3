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

type waitlistRepository struct {
	mu    sync.RWMutex
	items map[string]model.WaitlistEntry
}

func NewWaitlistRepository() repository.WaitlistRepository {
	return &waitlistRepository{items: make(map[string]model.WaitlistEntry)}
}

func (r *waitlistRepository) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = entry.CreatedAt
	r.items[entry.ID] = *entry
	return nil
}

func (r *waitlistRepository) Get(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (r *waitlistRepository) ListByUser(ctx context.Context, userID string) ([]*model.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.WaitlistEntry
	for _, item := range r.items {
		if item.UserID == userID {
			cp := item
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *waitlistRepository) ListActiveForService(ctx context.Context, serviceID string, now time.Time) ([]*model.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.WaitlistEntry
	for _, item := range r.items {
		if item.ServiceID == serviceID && item.Status == model.WaitlistStatusActive && item.ExpiresAt.After(now) {
			cp := item
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *waitlistRepository) UpdateStatus(ctx context.Context, id string, status model.WaitlistStatus, notifiedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	item.Status = status
	if notifiedAt != nil {
		item.NotifiedAt = notifiedAt
	}
	item.UpdatedAt = time.Now().UTC()
	r.items[id] = item
	return nil
}

func (r *waitlistRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, item := range r.items {
		if (item.Status == model.WaitlistStatusActive || item.Status == model.WaitlistStatusNotified) && !item.ExpiresAt.After(now) {
			item.Status = model.WaitlistStatusExpired
			item.UpdatedAt = now
			r.items[id] = item
			n++
		}
	}
	return n, nil
}
