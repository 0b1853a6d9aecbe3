package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

// RecurringBookingRequest books every occurrence of Pattern at the time of
// day of Start.
type RecurringBookingRequest struct {
	UserID    string
	ServiceID string
	StaffID   string
	Start     time.Time
	Notes     string
	Pattern   model.RecurrencePattern
}

// BookRecurring validates the pattern, records the series and books each
// occurrence independently. A failed occurrence is reported in the result
// and does not stop the remaining ones.
func (s *Scheduler) BookRecurring(ctx context.Context, req RecurringBookingRequest) (*model.SeriesResult, error) {
	if req.Start.IsZero() {
		return nil, apperrors.NewBadRequest("start time is required", nil)
	}
	occurrences, err := ExpandRecurrence(&req.Pattern, time.Time{}, s.loc)
	if err != nil {
		return nil, err
	}
	if _, err := s.bookableService(ctx, req.ServiceID, req.StaffID); err != nil {
		return nil, err
	}

	tod := model.TimeOfDayOf(req.Start, s.loc)
	series := &model.RecurringSeries{
		UserID:    req.UserID,
		ServiceID: req.ServiceID,
		StaffID:   req.StaffID,
		TimeOfDay: tod.String(),
		Pattern:   req.Pattern,
		Status:    model.SeriesStatusActive,
	}
	if err := s.series.Create(ctx, series); err != nil {
		return nil, fmt.Errorf("failed to create recurring series: %w", err)
	}

	result := &model.SeriesResult{Series: series, Occurrences: []model.OccurrenceResult{}}
	for date := range occurrences {
		if len(result.Occurrences) >= s.cfg.MaxOccurrences {
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		apt, err := s.Book(ctx, BookingRequest{
			UserID:    req.UserID,
			ServiceID: req.ServiceID,
			StaffID:   req.StaffID,
			Start:     tod.On(date, s.loc),
			Notes:     req.Notes,
			SeriesID:  &series.ID,
		})
		occ := model.NewOccurrenceResult(date, apt, err)
		if occ.Booked() {
			result.Booked++
		} else {
			result.Failed++
		}
		result.Occurrences = append(result.Occurrences, occ)
	}

	s.logger.Info("recurring series booked",
		"series_id", series.ID,
		"booked", result.Booked,
		"failed", result.Failed,
	)
	s.emit(ctx, model.EventSeriesCreated, series.ID, result)
	return result, nil
}
