// Package ledger owns committed appointments. Commit is the only way a new
// appointment enters storage and never admits two overlapping active
// appointments for one staff member.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

const sweepBatchSize = 100

type Service struct {
	repo    repository.AppointmentRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo repository.AppointmentRepository, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:    repo,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

// FindConflicts returns active appointments of staffID overlapping
// [start, end).
func (s *Service) FindConflicts(ctx context.Context, staffID string, start, end time.Time) ([]*model.Appointment, error) {
	conflicts, err := s.repo.FindConflicts(ctx, staffID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to find conflicts: %w", err)
	}
	return conflicts, nil
}

// Commit inserts appointment unless it overlaps an active appointment of
// the same staff member, in which case the error matches SlotTakenError.
func (s *Service) Commit(ctx context.Context, appointment *model.Appointment) error {
	if !appointment.EndTime.After(appointment.StartTime) {
		return apperrors.NewInvalidTimeRange("appointment must end after it starts")
	}
	if !appointment.Status.Valid() {
		return apperrors.NewBadRequest(fmt.Sprintf("invalid status %q", appointment.Status), nil)
	}

	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	now := s.now().UTC()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	if err := s.repo.Insert(ctx, appointment); err != nil {
		if errors.Is(err, repository.ErrOverlap) {
			return apperrors.NewSlotTaken(err)
		}
		return fmt.Errorf("failed to commit appointment: %w", err)
	}

	s.logger.Info("appointment committed",
		"appointment_id", appointment.ID,
		"staff_id", appointment.StaffID,
		"start_time", appointment.StartTime,
		"status", appointment.Status,
	)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters != nil && !filters.From.IsZero() && !filters.To.IsZero() && !filters.To.After(filters.From) {
		return nil, apperrors.NewInvalidTimeRange("to must be after from")
	}
	apts, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return apts, nil
}

// UpdateStatus applies one state machine transition. It returns the updated
// appointment and the status it moved from.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) (*model.Appointment, model.AppointmentStatus, error) {
	apt, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	from := apt.Status
	if !from.CanTransitionTo(status) {
		return nil, "", apperrors.NewInvalidStatusTransition(string(from), string(status))
	}

	if err := s.repo.UpdateStatus(ctx, id, from, status); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, "", apperrors.NewNotFound("appointment", err)
		case errors.Is(err, repository.ErrStaleStatus):
			return nil, "", apperrors.New(apperrors.ErrInvalidStatusTransition,
				fmt.Sprintf("appointment changed concurrently, cannot move to %s", status), err)
		}
		return nil, "", fmt.Errorf("failed to update appointment status: %w", err)
	}

	s.metrics.ObserveTransition(string(from), string(status))
	s.logger.Info("appointment status changed", "appointment_id", id, "from", from, "to", status)

	apt.Status = status
	apt.UpdatedAt = s.now().UTC()
	return apt, from, nil
}

// MarkMissed moves confirmed appointments that ended before cutoff to
// missed. Appointments that changed concurrently are skipped.
func (s *Service) MarkMissed(ctx context.Context, cutoff time.Time) ([]*model.Appointment, error) {
	var missed []*model.Appointment
	for {
		batch, err := s.repo.ListConfirmedEndingBefore(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return missed, fmt.Errorf("failed to list overdue appointments: %w", err)
		}

		moved := 0
		for _, apt := range batch {
			updated, _, err := s.UpdateStatus(ctx, apt.ID, model.AppointmentStatusMissed)
			if err != nil {
				if errors.Is(err, apperrors.InvalidStatusTransitionError) || errors.Is(err, apperrors.NotFoundError) {
					continue
				}
				return missed, err
			}
			missed = append(missed, updated)
			moved++
		}

		if len(batch) < sweepBatchSize || moved == 0 {
			return missed, nil
		}
	}
}
