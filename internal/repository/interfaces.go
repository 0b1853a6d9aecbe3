package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
)

// ErrNotFound is returned by every repository when a row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrOverlap is returned by AppointmentRepository.Insert when the new
// appointment overlaps an active one on the same staff member.
var ErrOverlap = errors.New("appointment overlaps an active appointment")

// ErrStaleStatus is returned by UpdateStatus when the stored status no
// longer matches the expected one.
var ErrStaleStatus = errors.New("appointment status changed concurrently")

// All repository interfaces in one file
type (
	// AppointmentRepository is the storage behind the booking ledger.
	// Insert must be atomic with respect to overlap detection per staff.
	AppointmentRepository interface {
		Insert(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id string) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		FindConflicts(ctx context.Context, staffID string, start, end time.Time) ([]*model.Appointment, error)
		UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) error
		ListConfirmedEndingBefore(ctx context.Context, before time.Time, limit int) ([]*model.Appointment, error)
	}

	AvailabilityRepository interface {
		Get(ctx context.Context, staffID string) (*model.StaffAvailability, error)
		Upsert(ctx context.Context, availability *model.StaffAvailability) error
	}

	ServiceRepository interface {
		Create(ctx context.Context, service *model.Service) error
		Get(ctx context.Context, id string) (*model.Service, error)
		Update(ctx context.Context, service *model.Service) error
		List(ctx context.Context, filters *model.ServiceFilters) ([]*model.Service, error)
	}

	SeriesRepository interface {
		Create(ctx context.Context, series *model.RecurringSeries) error
		Get(ctx context.Context, id string) (*model.RecurringSeries, error)
	}

	WaitlistRepository interface {
		Create(ctx context.Context, entry *model.WaitlistEntry) error
		Get(ctx context.Context, id string) (*model.WaitlistEntry, error)
		ListByUser(ctx context.Context, userID string) ([]*model.WaitlistEntry, error)
		ListActiveForService(ctx context.Context, serviceID string, now time.Time) ([]*model.WaitlistEntry, error)
		UpdateStatus(ctx context.Context, id string, status model.WaitlistStatus, notifiedAt *time.Time) error
		ExpireBefore(ctx context.Context, now time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending marks up to limit due events as processing and
		// returns them. Claimed events are invisible to other callers.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id string) error
		// MarkFailed schedules a retry at retryAt, or parks the event as
		// failed when retryAt is nil.
		MarkFailed(ctx context.Context, id string, errorMessage string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Repositories bundles one implementation of every repository.
type Repositories struct {
	Appointments AppointmentRepository
	Availability AvailabilityRepository
	Services     ServiceRepository
	Series       SeriesRepository
	Waitlist     WaitlistRepository
	Outbox       OutboxRepository
}
