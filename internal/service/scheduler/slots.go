package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
)

// StaffSlots groups open slots by staff member.
type StaffSlots struct {
	StaffID string           `json:"staff_id"`
	Slots   []model.TimeSlot `json:"slots"`
}

// FindOpenSlots returns the bookable slots of staffID for the service on
// date. Slots start at each shift start and step by the service duration.
// The result is a snapshot: a returned slot can still lose to a concurrent
// booking.
func (s *Scheduler) FindOpenSlots(ctx context.Context, serviceID, staffID string, date time.Time) ([]model.TimeSlot, error) {
	timer := s.metrics.SlotSearchTimer()
	defer timer.ObserveDuration()

	svc, err := s.bookableService(ctx, serviceID, staffID)
	if err != nil {
		return nil, err
	}
	return s.openSlots(ctx, svc, staffID, date)
}

// FindServiceAvailability runs FindOpenSlots for every staff member
// assigned to the service.
func (s *Scheduler) FindServiceAvailability(ctx context.Context, serviceID string, date time.Time) ([]StaffSlots, error) {
	timer := s.metrics.SlotSearchTimer()
	defer timer.ObserveDuration()

	svc, err := s.bookableService(ctx, serviceID, "")
	if err != nil {
		return nil, err
	}

	out := make([]StaffSlots, 0, len(svc.StaffIDs))
	for _, staffID := range svc.StaffIDs {
		slots, err := s.openSlots(ctx, svc, staffID, date)
		if err != nil {
			return nil, err
		}
		out = append(out, StaffSlots{StaffID: staffID, Slots: slots})
	}
	return out, nil
}

func (s *Scheduler) openSlots(ctx context.Context, svc *model.Service, staffID string, date time.Time) ([]model.TimeSlot, error) {
	slots := []model.TimeSlot{}
	duration := svc.Duration()
	if duration <= 0 {
		return nil, fmt.Errorf("service %s has no duration", svc.ID)
	}

	shifts, err := s.shifts.GetShiftsFor(ctx, staffID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve shifts: %w", err)
	}
	if len(shifts) == 0 {
		return slots, nil
	}

	booked, err := s.ledger.FindConflicts(ctx, staffID, shifts[0].Start, shifts[len(shifts)-1].End)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, shift := range shifts {
		for start := shift.Start; !start.Add(duration).After(shift.End); start = start.Add(duration) {
			slot := model.TimeSlot{Start: start, End: start.Add(duration)}
			if slot.Start.Before(now) || overlapsAny(slot, booked) {
				continue
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

func overlapsAny(slot model.TimeSlot, booked []*model.Appointment) bool {
	for _, apt := range booked {
		if apt.Overlaps(slot.Start, slot.End) {
			return true
		}
	}
	return false
}
