// Package memory holds process-local repositories. They back tests and the
// "memory" storage driver and give the same guarantees as the postgres
// repositories within a single process.
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

// NewRepositories returns a fresh in-memory set.
func NewRepositories() *repository.Repositories {
	return &repository.Repositories{
		Appointments: NewAppointmentRepository(),
		Availability: NewAvailabilityRepository(),
		Services:     NewServiceRepository(),
		Series:       NewSeriesRepository(),
		Waitlist:     NewWaitlistRepository(),
		Outbox:       NewOutboxRepository(),
	}
}

type availabilityRepository struct {
	mu    sync.RWMutex
	items map[string]model.StaffAvailability
}

func NewAvailabilityRepository() repository.AvailabilityRepository {
	return &availabilityRepository{items: make(map[string]model.StaffAvailability)}
}

func (r *availabilityRepository) Get(ctx context.Context, staffID string) (*model.StaffAvailability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[staffID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (r *availabilityRepository) Upsert(ctx context.Context, availability *model.StaffAvailability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.items[availability.StaffID]; ok {
		availability.CreatedAt = existing.CreatedAt
	} else if availability.CreatedAt.IsZero() {
		availability.CreatedAt = now
	}
	availability.UpdatedAt = now
	r.items[availability.StaffID] = *availability
	return nil
}

type serviceRepository struct {
	mu    sync.RWMutex
	items map[string]model.Service
}

func NewServiceRepository() repository.ServiceRepository {
	return &serviceRepository{items: make(map[string]model.Service)}
}

func (r *serviceRepository) Create(ctx context.Context, service *model.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if service.ID == "" {
		service.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	service.CreatedAt = now
	service.UpdatedAt = now
	r.items[service.ID] = *service
	return nil
}

func (r *serviceRepository) Get(ctx context.Context, id string) (*model.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (r *serviceRepository) Update(ctx context.Context, service *model.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[service.ID]
	if !ok {
		return repository.ErrNotFound
	}
	service.CreatedAt = existing.CreatedAt
	service.UpdatedAt = time.Now().UTC()
	r.items[service.ID] = *service
	return nil
}

func (r *serviceRepository) List(ctx context.Context, filters *model.ServiceFilters) ([]*model.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Service
	for _, item := range r.items {
		if filters != nil && filters.ActiveOnly && !item.Active {
			continue
		}
		if filters != nil && filters.StaffID != "" && !item.HasStaff(filters.StaffID) {
			continue
		}
		cp := item
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type seriesRepository struct {
	mu    sync.RWMutex
	items map[string]model.RecurringSeries
}

func NewSeriesRepository() repository.SeriesRepository {
	return &seriesRepository{items: make(map[string]model.RecurringSeries)}
}

func (r *seriesRepository) Create(ctx context.Context, series *model.RecurringSeries) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if series.ID == "" {
		series.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	series.CreatedAt = now
	series.UpdatedAt = now
	r.items[series.ID] = *series
	return nil
}

func (r *seriesRepository) Get(ctx context.Context, id string) (*model.RecurringSeries, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}
