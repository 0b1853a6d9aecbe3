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

type appointmentRepository struct {
	mu      sync.RWMutex
	byID    map[string]*model.Appointment
	byStaff map[string][]string
}

// NewAppointmentRepository returns a process-local ledger store. Insert
// holds the write lock across the overlap check and the insert.
func NewAppointmentRepository() repository.AppointmentRepository {
	return &appointmentRepository{
		byID:    make(map[string]*model.Appointment),
		byStaff: make(map[string][]string),
	}
}

func (r *appointmentRepository) Insert(ctx context.Context, appointment *model.Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if appointment.Status.BlocksSlot() {
		for _, id := range r.byStaff[appointment.StaffID] {
			existing := r.byID[id]
			if existing.Status.BlocksSlot() && existing.Overlaps(appointment.StartTime, appointment.EndTime) {
				return repository.ErrOverlap
			}
		}
	}

	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = appointment.CreatedAt

	stored := *appointment
	r.byID[stored.ID] = &stored
	r.byStaff[stored.StaffID] = append(r.byStaff[stored.StaffID], stored.ID)
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id string) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	apt, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *apt
	return &out, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Appointment
	for _, apt := range r.byID {
		if filters.Matches(apt) {
			cp := *apt
			out = append(out, &cp)
		}
	}
	sortByStart(out)
	if filters != nil && filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r *appointmentRepository) FindConflicts(ctx context.Context, staffID string, start, end time.Time) ([]*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Appointment
	for _, id := range r.byStaff[staffID] {
		apt := r.byID[id]
		if apt.Status.BlocksSlot() && apt.Overlaps(start, end) {
			cp := *apt
			out = append(out, &cp)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	apt, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if apt.Status != from {
		return repository.ErrStaleStatus
	}
	apt.Status = to
	apt.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *appointmentRepository) ListConfirmedEndingBefore(ctx context.Context, before time.Time, limit int) ([]*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Appointment
	for _, apt := range r.byID {
		if apt.Status == model.AppointmentStatusConfirmed && apt.EndTime.Before(before) {
			cp := *apt
			out = append(out, &cp)
		}
	}
	sortByStart(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortByStart(apts []*model.Appointment) {
	sort.Slice(apts, func(i, j int) bool {
		if apts[i].StartTime.Equal(apts[j].StartTime) {
			return apts[i].ID < apts[j].ID
		}
		return apts[i].StartTime.Before(apts[j].StartTime)
	})
}
