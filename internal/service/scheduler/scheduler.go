// Package scheduler answers slot searches and turns booking requests,
// single or recurring, into committed appointments.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/service/event"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

const defaultMaxOccurrences = 52

// ShiftSource resolves working intervals for a staff member on a date.
type ShiftSource interface {
	GetShiftsFor(ctx context.Context, staffID string, date time.Time) ([]model.TimeSlot, error)
}

// Ledger is the subset of the booking ledger the scheduler drives.
type Ledger interface {
	FindConflicts(ctx context.Context, staffID string, start, end time.Time) ([]*model.Appointment, error)
	Commit(ctx context.Context, appointment *model.Appointment) error
	UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) (*model.Appointment, model.AppointmentStatus, error)
	MarkMissed(ctx context.Context, cutoff time.Time) ([]*model.Appointment, error)
}

// OpeningNotifier is told about slots freed by a cancellation.
type OpeningNotifier interface {
	NotifyOpening(ctx context.Context, appointment *model.Appointment) (int, error)
}

type Config struct {
	AutoConfirm    bool
	MaxOccurrences int
	Location       *time.Location
}

type Scheduler struct {
	services repository.ServiceRepository
	series   repository.SeriesRepository
	shifts   ShiftSource
	ledger   Ledger
	events   event.Emitter
	waitlist OpeningNotifier

	cfg     Config
	loc     *time.Location
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithWaitlist(n OpeningNotifier) Option {
	return func(s *Scheduler) { s.waitlist = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func New(
	services repository.ServiceRepository,
	series repository.SeriesRepository,
	shifts ShiftSource,
	ledger Ledger,
	events event.Emitter,
	cfg Config,
	log *logger.Logger,
	opts ...Option,
) *Scheduler {
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = defaultMaxOccurrences
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if events == nil {
		events = event.NopEmitter{}
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Scheduler{
		services: services,
		series:   series,
		shifts:   shifts,
		ledger:   ledger,
		events:   events,
		cfg:      cfg,
		loc:      cfg.Location,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// bookableService loads the service and checks that staffID may be booked
// for it.
func (s *Scheduler) bookableService(ctx context.Context, serviceID, staffID string) (*model.Service, error) {
	svc, err := s.loadService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, apperrors.NewSlotUnavailable("service is not active", nil)
	}
	if staffID != "" && !svc.HasStaff(staffID) {
		return nil, apperrors.NewSlotUnavailable("staff member does not provide this service", nil)
	}
	return svc, nil
}

func (s *Scheduler) loadService(ctx context.Context, serviceID string) (*model.Service, error) {
	svc, err := s.services.Get(ctx, serviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("service", err)
		}
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	return svc, nil
}

// emit records an event. Delivery problems never fail the caller.
func (s *Scheduler) emit(ctx context.Context, eventType, aggregateID string, payload interface{}) {
	if err := s.events.Emit(ctx, eventType, aggregateID, payload); err != nil {
		s.logger.Error(err, "failed to emit event", "event_type", eventType, "aggregate_id", aggregateID)
	}
}
