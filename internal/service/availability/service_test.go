package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
)

// 2024-01-08 is a Monday.
var monday = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(memory.NewAvailabilityRepository(), time.UTC, time.Minute, logger.Nop())
}

func weekdayRequest(shifts ...model.ShiftInput) *model.SetAvailabilityRequest {
	return &model.SetAvailabilityRequest{Weekly: map[int][]model.ShiftInput{1: shifts}}
}

func TestGetShiftsForSubtractsBreaks(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.SetAvailability(ctx, "staff-1", weekdayRequest(
		model.ShiftInput{Start: "13:00", End: "17:00"},
		model.ShiftInput{Start: "09:00", End: "12:00", Breaks: []model.BreakInput{{Start: "10:00", End: "10:30"}}},
	))
	require.NoError(t, err)

	shifts, err := svc.GetShiftsFor(ctx, "staff-1", monday)
	require.NoError(t, err)
	assert.Equal(t, []model.TimeSlot{
		{Start: at(monday, 9, 0), End: at(monday, 10, 0)},
		{Start: at(monday, 10, 30), End: at(monday, 12, 0)},
		{Start: at(monday, 13, 0), End: at(monday, 17, 0)},
	}, shifts)

	tuesday := monday.AddDate(0, 0, 1)
	shifts, err = svc.GetShiftsFor(ctx, "staff-1", tuesday)
	require.NoError(t, err)
	assert.Empty(t, shifts)
}

func TestGetShiftsForUnknownStaffIsEmpty(t *testing.T) {
	shifts, err := newTestService(t).GetShiftsFor(context.Background(), "nobody", monday)
	require.NoError(t, err)
	assert.Empty(t, shifts)
}

func TestOverridesReplaceTemplate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	req := weekdayRequest(model.ShiftInput{Start: "09:00", End: "17:00"})
	req.Overrides = []model.OverrideInput{
		{Date: "2024-01-08", Available: false, Note: "holiday"},
		{Date: "2024-01-15", Available: true, Start: "12:00", End: "14:00",
			Breaks: []model.BreakInput{{Start: "13:00", End: "13:15"}}},
	}
	_, err := svc.SetAvailability(ctx, "staff-1", req)
	require.NoError(t, err)

	shifts, err := svc.GetShiftsFor(ctx, "staff-1", monday)
	require.NoError(t, err)
	assert.Empty(t, shifts)

	next := monday.AddDate(0, 0, 7)
	shifts, err = svc.GetShiftsFor(ctx, "staff-1", next)
	require.NoError(t, err)
	assert.Equal(t, []model.TimeSlot{
		{Start: at(next, 12, 0), End: at(next, 13, 0)},
		{Start: at(next, 13, 15), End: at(next, 14, 0)},
	}, shifts)

	following := monday.AddDate(0, 0, 14)
	shifts, err = svc.GetShiftsFor(ctx, "staff-1", following)
	require.NoError(t, err)
	assert.Equal(t, []model.TimeSlot{{Start: at(following, 9, 0), End: at(following, 17, 0)}}, shifts)
}

func TestSetAvailabilityValidation(t *testing.T) {
	tests := []struct {
		name string
		req  *model.SetAvailabilityRequest
		want *apperrors.AppError
	}{
		{
			name: "bad time format",
			req:  weekdayRequest(model.ShiftInput{Start: "9am", End: "17:00"}),
			want: apperrors.InvalidTimeFormatError,
		},
		{
			name: "hour out of range",
			req:  weekdayRequest(model.ShiftInput{Start: "24:00", End: "17:00"}),
			want: apperrors.InvalidTimeFormatError,
		},
		{
			name: "end before start",
			req:  weekdayRequest(model.ShiftInput{Start: "17:00", End: "09:00"}),
			want: apperrors.InvalidTimeRangeError,
		},
		{
			name: "empty shift",
			req:  weekdayRequest(model.ShiftInput{Start: "09:00", End: "09:00"}),
			want: apperrors.InvalidTimeRangeError,
		},
		{
			name: "overlapping shifts",
			req: weekdayRequest(
				model.ShiftInput{Start: "09:00", End: "12:00"},
				model.ShiftInput{Start: "11:59", End: "15:00"},
			),
			want: apperrors.OverlappingShiftError,
		},
		{
			name: "break outside shift",
			req: weekdayRequest(model.ShiftInput{Start: "09:00", End: "12:00",
				Breaks: []model.BreakInput{{Start: "11:30", End: "12:30"}}}),
			want: apperrors.BreakOutOfRangeError,
		},
		{
			name: "overlapping breaks",
			req: weekdayRequest(model.ShiftInput{Start: "09:00", End: "17:00",
				Breaks: []model.BreakInput{{Start: "12:00", End: "13:00"}, {Start: "12:30", End: "13:30"}}}),
			want: apperrors.OverlappingShiftError,
		},
		{
			name: "available override without hours",
			req: &model.SetAvailabilityRequest{Overrides: []model.OverrideInput{
				{Date: "2024-01-08", Available: true, Start: "09:00"},
			}},
			want: apperrors.InvalidTimeFormatError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			_, err := svc.SetAvailability(context.Background(), "staff-1", tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			_, err = svc.GetAvailability(context.Background(), "staff-1")
			assert.True(t, errors.Is(err, apperrors.NotFoundError), "nothing is stored on failure")
		})
	}
}

func TestSetAvailabilityAcceptsBackToBackShifts(t *testing.T) {
	svc := newTestService(t)
	av, err := svc.SetAvailability(context.Background(), "staff-1", weekdayRequest(
		model.ShiftInput{Start: "12:00", End: "17:00"},
		model.ShiftInput{Start: "09:00", End: "12:00"},
	))
	require.NoError(t, err)
	require.Len(t, av.Weekly[time.Monday], 2)
	assert.Equal(t, "09:00", av.Weekly[time.Monday][0].Start.String())
}

func TestSetAvailabilityRejectsBadWeekdayAndDuplicates(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SetAvailability(context.Background(), "staff-1", &model.SetAvailabilityRequest{
		Weekly: map[int][]model.ShiftInput{7: {{Start: "09:00", End: "10:00"}}},
	})
	assert.True(t, errors.Is(err, apperrors.New(apperrors.ErrBadRequest, "", nil)))

	_, err = svc.SetAvailability(context.Background(), "staff-1", &model.SetAvailabilityRequest{
		Overrides: []model.OverrideInput{{Date: "2024-01-08"}, {Date: "2024-01-08"}},
	})
	assert.Error(t, err)
}

type countingRepo struct {
	repository.AvailabilityRepository
	gets int
}

func (r *countingRepo) Get(ctx context.Context, staffID string) (*model.StaffAvailability, error) {
	r.gets++
	return r.AvailabilityRepository.Get(ctx, staffID)
}

func TestReadsAreCachedAndWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{AvailabilityRepository: memory.NewAvailabilityRepository()}
	svc := NewService(repo, time.UTC, time.Minute, logger.Nop())

	_, err := svc.SetAvailability(ctx, "staff-1", weekdayRequest(model.ShiftInput{Start: "09:00", End: "17:00"}))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.GetShiftsFor(ctx, "staff-1", monday)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.gets)

	_, err = svc.SetAvailability(ctx, "staff-1", weekdayRequest(model.ShiftInput{Start: "10:00", End: "11:00"}))
	require.NoError(t, err)

	shifts, err := svc.GetShiftsFor(ctx, "staff-1", monday)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.gets)
	assert.Equal(t, []model.TimeSlot{{Start: at(monday, 10, 0), End: at(monday, 11, 0)}}, shifts)
}

func TestAddTimeOff(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	req := &model.SetAvailabilityRequest{
		Weekly: map[int][]model.ShiftInput{
			1: {{Start: "09:00", End: "17:00"}},
			2: {{Start: "09:00", End: "17:00"}},
		},
		Overrides: []model.OverrideInput{{Date: "2024-01-09", Available: true, Start: "10:00", End: "12:00"}},
	}
	_, err := svc.SetAvailability(ctx, "staff-1", req)
	require.NoError(t, err)

	av, err := svc.AddTimeOff(ctx, "staff-1", &model.TimeOffRequest{From: "2024-01-08", To: "2024-01-09", Note: "leave"})
	require.NoError(t, err)
	require.Len(t, av.Overrides, 2)
	assert.False(t, av.Overrides[1].Available)

	for _, day := range []time.Time{monday, monday.AddDate(0, 0, 1)} {
		shifts, err := svc.GetShiftsFor(ctx, "staff-1", day)
		require.NoError(t, err)
		assert.Empty(t, shifts)
	}

	_, err = svc.AddTimeOff(ctx, "staff-1", &model.TimeOffRequest{From: "2024-01-09", To: "2024-01-08"})
	assert.True(t, errors.Is(err, apperrors.InvalidTimeRangeError))

	_, err = svc.AddTimeOff(ctx, "staff-1", &model.TimeOffRequest{From: "2024-01-01", To: "2025-06-01"})
	assert.Error(t, err)
}

func TestAddTimeOffKeepsNewerTemplateFromAnotherInstance(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAvailabilityRepository()
	a := NewService(repo, time.UTC, time.Minute, logger.Nop())
	b := NewService(repo, time.UTC, time.Minute, logger.Nop())

	_, err := a.SetAvailability(ctx, "staff-1", weekdayRequest(model.ShiftInput{Start: "09:00", End: "17:00"}))
	require.NoError(t, err)
	_, err = a.GetShiftsFor(ctx, "staff-1", monday)
	require.NoError(t, err)

	_, err = b.SetAvailability(ctx, "staff-1", &model.SetAvailabilityRequest{
		Weekly: map[int][]model.ShiftInput{2: {{Start: "10:00", End: "12:00"}}},
	})
	require.NoError(t, err)

	_, err = a.AddTimeOff(ctx, "staff-1", &model.TimeOffRequest{From: "2024-01-10", To: "2024-01-10"})
	require.NoError(t, err)

	stored, err := repo.Get(ctx, "staff-1")
	require.NoError(t, err)
	assert.Contains(t, stored.Weekly, time.Tuesday)
	assert.NotContains(t, stored.Weekly, time.Monday)
	require.Len(t, stored.Overrides, 1)
	assert.Equal(t, "2024-01-10", stored.Overrides[0].Date)
}
