package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

// BookingRequest asks for one appointment starting at Start.
type BookingRequest struct {
	UserID    string
	ServiceID string
	StaffID   string
	Start     time.Time
	Notes     string
	SeriesID  *string
}

// Book validates req and commits the appointment. A start outside the staff
// member's shifts, a conflict or an unbookable service matches
// SlotUnavailableError; losing a race to another booking also matches
// SlotTakenError. Missing ids give BadRequest and an unknown service NotFound.
func (s *Scheduler) Book(ctx context.Context, req BookingRequest) (*model.Appointment, error) {
	apt, err := s.book(ctx, req)
	switch {
	case err == nil:
		s.metrics.ObserveBooking("booked")
	case errors.Is(err, apperrors.SlotTakenError):
		s.metrics.ObserveBooking("conflict")
	default:
		s.metrics.ObserveBooking("rejected")
	}
	if err != nil {
		return nil, err
	}

	s.emit(ctx, model.EventAppointmentCreated, apt.ID, apt)
	return apt, nil
}

func (s *Scheduler) book(ctx context.Context, req BookingRequest) (*model.Appointment, error) {
	if req.UserID == "" {
		return nil, apperrors.NewBadRequest("user id is required", nil)
	}
	if req.Start.IsZero() {
		return nil, apperrors.NewBadRequest("start time is required", nil)
	}

	if req.StaffID == "" {
		return nil, apperrors.NewBadRequest("staff id is required", nil)
	}

	svc, err := s.bookableService(ctx, req.ServiceID, req.StaffID)
	if err != nil {
		return nil, err
	}

	slot := model.TimeSlot{Start: req.Start, End: req.Start.Add(svc.Duration())}
	if slot.Start.Before(s.now()) {
		return nil, apperrors.NewSlotUnavailable("cannot book a time in the past", nil)
	}

	shifts, err := s.shifts.GetShiftsFor(ctx, req.StaffID, slot.Start)
	if err != nil {
		return nil, err
	}
	if !withinOneShift(slot, shifts) {
		return nil, apperrors.NewSlotUnavailable("requested time is outside working hours", nil)
	}

	conflicts, err := s.ledger.FindConflicts(ctx, req.StaffID, slot.Start, slot.End)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, apperrors.NewSlotUnavailable("requested time is already booked", apperrors.NewSlotTaken(nil))
	}

	status := model.AppointmentStatusPending
	if s.cfg.AutoConfirm {
		status = model.AppointmentStatusConfirmed
	}
	apt := &model.Appointment{
		UserID:    req.UserID,
		StaffID:   req.StaffID,
		ServiceID: svc.ID,
		SeriesID:  req.SeriesID,
		StartTime: slot.Start.UTC(),
		EndTime:   slot.End.UTC(),
		Status:    status,
		Notes:     req.Notes,
	}

	if err := s.ledger.Commit(ctx, apt); err != nil {
		if errors.Is(err, apperrors.SlotTakenError) {
			return nil, apperrors.NewSlotUnavailable("requested time is already booked", err)
		}
		return nil, err
	}
	return apt, nil
}

// UpdateStatus moves an appointment through its state machine. A
// cancellation offers the freed slot to the waitlist.
func (s *Scheduler) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) (*model.Appointment, error) {
	apt, from, err := s.ledger.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.emitStatusChanged(ctx, apt, from)

	if status == model.AppointmentStatusCancelled && s.waitlist != nil && apt.StartTime.After(s.now()) {
		if _, err := s.waitlist.NotifyOpening(ctx, apt); err != nil {
			s.logger.Error(err, "failed to notify waitlist", "appointment_id", apt.ID)
		}
	}
	return apt, nil
}

// SweepMissed marks confirmed appointments that ended before cutoff as
// missed and returns how many moved.
func (s *Scheduler) SweepMissed(ctx context.Context, cutoff time.Time) (int, error) {
	missed, err := s.ledger.MarkMissed(ctx, cutoff)
	for _, apt := range missed {
		s.emitStatusChanged(ctx, apt, model.AppointmentStatusConfirmed)
	}
	return len(missed), err
}

func (s *Scheduler) emitStatusChanged(ctx context.Context, apt *model.Appointment, from model.AppointmentStatus) {
	s.emit(ctx, model.EventAppointmentStatusChanged, apt.ID, model.StatusChangedPayload{
		AppointmentID: apt.ID,
		UserID:        apt.UserID,
		StaffID:       apt.StaffID,
		ServiceID:     apt.ServiceID,
		From:          from,
		To:            apt.Status,
		StartTime:     apt.StartTime,
		EndTime:       apt.EndTime,
	})
}

func withinOneShift(slot model.TimeSlot, shifts []model.TimeSlot) bool {
	for _, shift := range shifts {
		if shift.Contains(slot) {
			return true
		}
	}
	return false
}
