package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation(model.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func collect(t *testing.T, p *model.RecurrencePattern, from time.Time) []string {
	t.Helper()
	seq, err := ExpandRecurrence(p, from, time.UTC)
	require.NoError(t, err)

	var out []string
	for d := range seq {
		out = append(out, d.Format(model.DateLayout))
	}
	return out
}

func TestNextOccurrenceWeekly(t *testing.T) {
	p := &model.RecurrencePattern{
		Frequency:  model.FrequencyWeekly,
		Interval:   1,
		DaysOfWeek: []int{1, 3},
		StartDate:  "2024-01-01",
		EndDate:    "2024-03-01",
	}

	next, ok, err := NextOccurrence(p, date("2024-01-01"), time.UTC)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, date("2024-01-03"), next)

	next, ok, err = NextOccurrence(p, next, time.UTC)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, date("2024-01-08"), next)

	next, _, err = NextOccurrence(p, date("2023-12-20"), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, date("2024-01-01"), next, "start date is eligible when from precedes it")

	_, ok, err = NextOccurrence(p, date("2024-03-01"), time.UTC)
	require.NoError(t, err)
	assert.False(t, ok, "nothing after the end date")
}

func TestExpandRecurrence(t *testing.T) {
	before := date("2023-12-31")

	tests := []struct {
		name    string
		pattern model.RecurrencePattern
		want    []string
	}{
		{
			name: "daily every other day with exclusion",
			pattern: model.RecurrencePattern{
				Frequency: model.FrequencyDaily, Interval: 2,
				StartDate: "2024-01-01", EndDate: "2024-01-07",
				ExcludedDates: []string{"2024-01-05"},
			},
			want: []string{"2024-01-01", "2024-01-03", "2024-01-07"},
		},
		{
			name: "zero interval means every period",
			pattern: model.RecurrencePattern{
				Frequency: model.FrequencyDaily,
				StartDate: "2024-01-01", EndDate: "2024-01-03",
			},
			want: []string{"2024-01-01", "2024-01-02", "2024-01-03"},
		},
		{
			name: "biweekly",
			pattern: model.RecurrencePattern{
				Frequency: model.FrequencyWeekly, Interval: 2, DaysOfWeek: []int{1},
				StartDate: "2024-01-01", EndDate: "2024-02-01",
			},
			want: []string{"2024-01-01", "2024-01-15", "2024-01-29"},
		},
		{
			name: "day 31 skips short months",
			pattern: model.RecurrencePattern{
				Frequency: model.FrequencyMonthly, DayOfMonth: 31,
				StartDate: "2024-01-01", EndDate: "2024-06-30",
			},
			want: []string{"2024-01-31", "2024-03-31", "2024-05-31"},
		},
		{
			name: "second tuesday",
			pattern: model.RecurrencePattern{
				Frequency: model.FrequencyMonthly, WeekOfMonth: 2, DaysOfWeek: []int{2},
				StartDate: "2024-01-01", EndDate: "2024-03-31",
			},
			want: []string{"2024-01-09", "2024-02-13", "2024-03-12"},
		},
		{
			name: "week five is the last weekday",
			pattern: model.RecurrencePattern{
				Frequency: model.FrequencyMonthly, WeekOfMonth: 5, DaysOfWeek: []int{5},
				StartDate: "2024-01-01", EndDate: "2024-03-31",
			},
			want: []string{"2024-01-26", "2024-02-23", "2024-03-29"},
		},
		{
			name: "custom rule",
			pattern: model.RecurrencePattern{
				Frequency: model.FrequencyCustom, CustomPattern: "RRULE:FREQ=WEEKLY;BYDAY=TU,TH",
				StartDate: "2024-01-01", EndDate: "2024-01-10",
			},
			want: []string{"2024-01-02", "2024-01-04", "2024-01-09"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collect(t, &tt.pattern, before))
		})
	}
}

func TestExpandRecurrenceStopsEarly(t *testing.T) {
	p := &model.RecurrencePattern{Frequency: model.FrequencyDaily, StartDate: "2024-01-01", EndDate: "2030-01-01"}
	seq, err := ExpandRecurrence(p, time.Time{}, time.UTC)
	require.NoError(t, err)

	n := 0
	for range seq {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestValidatePattern(t *testing.T) {
	valid := func() model.RecurrencePattern {
		return model.RecurrencePattern{
			Frequency: model.FrequencyWeekly, DaysOfWeek: []int{1},
			StartDate: "2024-01-01", EndDate: "2024-02-01",
		}
	}

	tests := []struct {
		name   string
		mutate func(*model.RecurrencePattern)
	}{
		{"empty days of week", func(p *model.RecurrencePattern) { p.DaysOfWeek = nil }},
		{"day of week out of range", func(p *model.RecurrencePattern) { p.DaysOfWeek = []int{7} }},
		{"negative interval", func(p *model.RecurrencePattern) { p.Interval = -1 }},
		{"end before start", func(p *model.RecurrencePattern) { p.EndDate = "2023-12-01" }},
		{"end equals start", func(p *model.RecurrencePattern) { p.EndDate = p.StartDate }},
		{"missing end", func(p *model.RecurrencePattern) { p.EndDate = "" }},
		{"bad start", func(p *model.RecurrencePattern) { p.StartDate = "01/01/2024" }},
		{"bad excluded date", func(p *model.RecurrencePattern) { p.ExcludedDates = []string{"soon"} }},
		{"unknown frequency", func(p *model.RecurrencePattern) { p.Frequency = "yearly" }},
		{"monthly with both", func(p *model.RecurrencePattern) {
			p.Frequency, p.DayOfMonth, p.WeekOfMonth = model.FrequencyMonthly, 3, 1
		}},
		{"monthly with neither", func(p *model.RecurrencePattern) { p.Frequency = model.FrequencyMonthly }},
		{"monthly day 32", func(p *model.RecurrencePattern) { p.Frequency, p.DayOfMonth = model.FrequencyMonthly, 32 }},
		{"week of month without days", func(p *model.RecurrencePattern) {
			p.Frequency, p.WeekOfMonth, p.DaysOfWeek = model.FrequencyMonthly, 2, nil
		}},
		{"custom without rule", func(p *model.RecurrencePattern) { p.Frequency = model.FrequencyCustom }},
		{"custom without freq", func(p *model.RecurrencePattern) {
			p.Frequency, p.CustomPattern = model.FrequencyCustom, "BYDAY=MO"
		}},
		{"custom hourly", func(p *model.RecurrencePattern) {
			p.Frequency, p.CustomPattern = model.FrequencyCustom, "FREQ=HOURLY"
		}},
		{"custom minutely", func(p *model.RecurrencePattern) {
			p.Frequency, p.CustomPattern = model.FrequencyCustom, "FREQ=MINUTELY;INTERVAL=30"
		}},
		{"custom daily with hours", func(p *model.RecurrencePattern) {
			p.Frequency, p.CustomPattern = model.FrequencyCustom, "FREQ=DAILY;BYHOUR=9,14"
		}},
	}

	base := valid()
	require.NoError(t, ValidatePattern(&base, time.UTC))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			err := ValidatePattern(&p, time.UTC)
			assert.True(t, errors.Is(err, apperrors.InvalidRecurrencePatternError), "got %v", err)
		})
	}
}

func TestBookRecurringCollectsPerOccurrenceResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 2024-01-15 is taken by someone else.
	_, err := f.book(t, "staff-1", at(monday.AddDate(0, 0, 7), 10, 0))
	require.NoError(t, err)

	result, err := f.scheduler.BookRecurring(ctx, RecurringBookingRequest{
		UserID:    "user-2",
		ServiceID: f.service.ID,
		StaffID:   "staff-1",
		Start:     at(monday, 10, 0),
		Pattern: model.RecurrencePattern{
			Frequency:  model.FrequencyWeekly,
			DaysOfWeek: []int{1},
			StartDate:  "2024-01-08",
			EndDate:    "2024-01-22",
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Occurrences, 3)
	assert.Equal(t, 2, result.Booked)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "10:00", result.Series.TimeOfDay)

	failed := result.Occurrences[1]
	assert.Equal(t, "2024-01-15", failed.Date)
	assert.False(t, failed.Booked())
	assert.True(t, errors.Is(failed.Err(), apperrors.SlotTakenError))

	last := result.Occurrences[2]
	require.True(t, last.Booked())
	require.NotNil(t, last.Appointment.SeriesID)
	assert.Equal(t, result.Series.ID, *last.Appointment.SeriesID)
	assert.Equal(t, at(monday.AddDate(0, 0, 14), 10, 0), last.Appointment.StartTime)

	assert.Len(t, f.outbox.EventsOfType(model.EventSeriesCreated), 1)
}

func TestBookRecurringCapsOccurrences(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxOccurrences = 2 })

	result, err := f.scheduler.BookRecurring(context.Background(), RecurringBookingRequest{
		UserID:    "user-1",
		ServiceID: f.service.ID,
		StaffID:   "staff-1",
		Start:     at(monday, 9, 0),
		Pattern: model.RecurrencePattern{
			Frequency:  model.FrequencyWeekly,
			DaysOfWeek: []int{1, 3},
			StartDate:  "2024-01-08",
			EndDate:    "2024-06-01",
		},
	})
	require.NoError(t, err)
	assert.Len(t, result.Occurrences, 2)
	assert.Equal(t, 2, result.Booked)
}

func TestBookRecurringRejectsInvalidPatternBeforeWriting(t *testing.T) {
	f := newFixture(t)

	_, err := f.scheduler.BookRecurring(context.Background(), RecurringBookingRequest{
		UserID:    "user-1",
		ServiceID: f.service.ID,
		StaffID:   "staff-1",
		Start:     at(monday, 9, 0),
		Pattern: model.RecurrencePattern{
			Frequency: model.FrequencyWeekly,
			StartDate: "2024-01-08",
			EndDate:   "2024-02-01",
		},
	})
	assert.True(t, errors.Is(err, apperrors.InvalidRecurrencePatternError))
	assert.Empty(t, f.outbox.Events())
}
