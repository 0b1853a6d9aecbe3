package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	"github.com/jwalitptl/booking-api/internal/service/availability"
	"github.com/jwalitptl/booking-api/internal/service/event"
	"github.com/jwalitptl/booking-api/internal/service/ledger"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// 2024-01-08 is a Monday.
var monday = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	scheduler    *Scheduler
	availability *availability.Service
	ledger       *ledger.Service
	outbox       *memory.OutboxRepository
	service      *model.Service
	now          time.Time
}

type fixtureOption func(*Config)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	services := memory.NewServiceRepository()
	f.service = &model.Service{
		Name:            "Consultation",
		DurationMinutes: 60,
		StaffIDs:        []string{"staff-1", "staff-2"},
		Active:          true,
	}
	require.NoError(t, services.Create(ctx, f.service))

	f.availability = availability.NewService(memory.NewAvailabilityRepository(), time.UTC, time.Minute, logger.Nop())
	for _, staffID := range f.service.StaffIDs {
		_, err := f.availability.SetAvailability(ctx, staffID, &model.SetAvailabilityRequest{
			Weekly: map[int][]model.ShiftInput{
				1: {{Start: "09:00", End: "17:00"}},
				3: {{Start: "09:00", End: "17:00"}},
			},
		})
		require.NoError(t, err)
	}

	f.ledger = ledger.NewService(memory.NewAppointmentRepository(), logger.Nop(), nil)
	f.outbox = memory.NewOutboxRepository()

	cfg := Config{Location: time.UTC, MaxOccurrences: 10}
	for _, opt := range opts {
		opt(&cfg)
	}
	f.scheduler = New(
		services,
		memory.NewSeriesRepository(),
		f.availability,
		f.ledger,
		event.NewService(f.outbox, logger.Nop(), 0),
		cfg,
		logger.Nop(),
		WithClock(func() time.Time { return f.now }),
		WithMetrics(metrics.New("test")),
	)
	return f
}

func (f *fixture) book(t *testing.T, staffID string, start time.Time) (*model.Appointment, error) {
	t.Helper()
	return f.scheduler.Book(context.Background(), BookingRequest{
		UserID:    "user-1",
		ServiceID: f.service.ID,
		StaffID:   staffID,
		Start:     start,
	})
}

func TestFindOpenSlotsSkipsBookedHour(t *testing.T) {
	f := newFixture(t)
	_, err := f.book(t, "staff-1", at(monday, 10, 0))
	require.NoError(t, err)

	slots, err := f.scheduler.FindOpenSlots(context.Background(), f.service.ID, "staff-1", monday)
	require.NoError(t, err)

	var starts []int
	for _, s := range slots {
		starts = append(starts, s.Start.Hour())
		assert.Equal(t, time.Hour, s.Duration())
	}
	assert.Equal(t, []int{9, 11, 12, 13, 14, 15, 16}, starts)
}

func TestFindOpenSlotsInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.availability.SetAvailability(ctx, "staff-1", &model.SetAvailabilityRequest{
		Weekly: map[int][]model.ShiftInput{1: {
			{Start: "08:30", End: "12:15", Breaks: []model.BreakInput{{Start: "10:00", End: "10:20"}}},
			{Start: "13:00", End: "16:45"},
		}},
	})
	require.NoError(t, err)
	_, err = f.book(t, "staff-1", at(monday, 14, 0))
	require.NoError(t, err)

	shifts, err := f.availability.GetShiftsFor(ctx, "staff-1", monday)
	require.NoError(t, err)

	slots, err := f.scheduler.FindOpenSlots(ctx, f.service.ID, "staff-1", monday)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	for i, slot := range slots {
		inside := false
		for _, shift := range shifts {
			inside = inside || shift.Contains(slot)
		}
		assert.True(t, inside, "slot %v outside shifts", slot)
		for _, other := range slots[i+1:] {
			assert.False(t, slot.Overlaps(other), "slots %v and %v overlap", slot, other)
		}
		assert.False(t, slot.Overlaps(model.TimeSlot{Start: at(monday, 14, 0), End: at(monday, 15, 0)}))
	}

	again, err := f.scheduler.FindOpenSlots(ctx, f.service.ID, "staff-1", monday)
	require.NoError(t, err)
	assert.Equal(t, slots, again, "search is idempotent")
}

func TestFindOpenSlotsDropsPastSlots(t *testing.T) {
	f := newFixture(t)
	f.now = at(monday, 12, 30)

	slots, err := f.scheduler.FindOpenSlots(context.Background(), f.service.ID, "staff-1", monday)
	require.NoError(t, err)
	require.Len(t, slots, 4)
	assert.Equal(t, at(monday, 13, 0), slots[0].Start)
}

func TestFindOpenSlotsRequiresBookableService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scheduler.FindOpenSlots(ctx, f.service.ID, "staff-9", monday)
	assert.True(t, errors.Is(err, apperrors.SlotUnavailableError))

	_, err = f.scheduler.FindOpenSlots(ctx, "missing", "staff-1", monday)
	assert.True(t, errors.Is(err, apperrors.NotFoundError))

	slots, err := f.scheduler.FindOpenSlots(ctx, f.service.ID, "staff-1", monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, slots, "no shifts on tuesday")
}

func TestFindServiceAvailability(t *testing.T) {
	f := newFixture(t)
	_, err := f.book(t, "staff-2", at(monday, 9, 0))
	require.NoError(t, err)

	all, err := f.scheduler.FindServiceAvailability(context.Background(), f.service.ID, monday)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "staff-1", all[0].StaffID)
	assert.Len(t, all[0].Slots, 8)
	assert.Len(t, all[1].Slots, 7)
}

func TestEverySearchedSlotCanBeBooked(t *testing.T) {
	f := newFixture(t)
	slots, err := f.scheduler.FindOpenSlots(context.Background(), f.service.ID, "staff-1", monday)
	require.NoError(t, err)

	for _, slot := range slots {
		apt, err := f.book(t, "staff-1", slot.Start)
		require.NoError(t, err, "slot %v", slot)
		assert.Equal(t, slot.End, apt.EndTime)
	}

	slots, err = f.scheduler.FindOpenSlots(context.Background(), f.service.ID, "staff-1", monday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestBookBackToBackAndOverlap(t *testing.T) {
	f := newFixture(t)

	first, err := f.book(t, "staff-1", at(monday, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, first.Status)
	assert.Equal(t, at(monday, 11, 0), first.EndTime)

	_, err = f.book(t, "staff-1", at(monday, 11, 0))
	assert.NoError(t, err, "back to back")

	_, err = f.book(t, "staff-1", at(monday, 9, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.SlotTakenError), "one minute overlap: %v", err)
	assert.True(t, errors.Is(err, apperrors.SlotUnavailableError))

	_, err = f.book(t, "staff-2", at(monday, 10, 0))
	assert.NoError(t, err, "other staff is free")
}

func TestConcurrentBooksHaveOneWinner(t *testing.T) {
	f := newFixture(t)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.book(t, "staff-1", at(monday, 10, 0))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, apperrors.SlotTakenError), "loser error: %v", err)
	}
	assert.Equal(t, 1, wins)

	conflicts, err := f.ledger.FindConflicts(context.Background(), "staff-1", at(monday, 0, 0), at(monday, 23, 59))
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)
}

func TestBookRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		staffID string
		start   time.Time
	}{
		{"unassigned staff", "staff-9", at(monday, 10, 0)},
		{"before shift", "staff-1", at(monday, 8, 30)},
		{"runs past shift end", "staff-1", at(monday, 16, 30)},
		{"day off", "staff-1", at(monday.AddDate(0, 0, 1), 10, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.book(t, tt.staffID, tt.start)
			assert.True(t, errors.Is(err, apperrors.SlotUnavailableError), "got %v", err)
			assert.False(t, errors.Is(err, apperrors.SlotTakenError))
		})
	}

	t.Run("in the past", func(t *testing.T) {
		f.now = at(monday, 12, 0)
		defer func() { f.now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }()
		_, err := f.book(t, "staff-1", at(monday, 10, 0))
		assert.True(t, errors.Is(err, apperrors.SlotUnavailableError))
	})

	t.Run("inactive service", func(t *testing.T) {
		svc := *f.service
		svc.ID = ""
		svc.Active = false
		services := f.scheduler.services
		require.NoError(t, services.Create(ctx, &svc))

		_, err := f.scheduler.Book(ctx, BookingRequest{UserID: "u", ServiceID: svc.ID, StaffID: "staff-1", Start: at(monday, 10, 0)})
		assert.True(t, errors.Is(err, apperrors.SlotUnavailableError))
	})

	t.Run("spans a break", func(t *testing.T) {
		_, err := f.availability.SetAvailability(ctx, "staff-2", &model.SetAvailabilityRequest{
			Weekly: map[int][]model.ShiftInput{1: {
				{Start: "09:00", End: "17:00", Breaks: []model.BreakInput{{Start: "12:00", End: "12:30"}}},
			}},
		})
		require.NoError(t, err)
		_, err = f.book(t, "staff-2", at(monday, 11, 30))
		assert.True(t, errors.Is(err, apperrors.SlotUnavailableError))
	})
}

func TestBookAutoConfirmAndEvents(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.AutoConfirm = true })

	apt, err := f.book(t, "staff-1", at(monday, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)

	events := f.outbox.EventsOfType(model.EventAppointmentCreated)
	require.Len(t, events, 1)
	assert.Equal(t, apt.ID, events[0].AggregateID)
}

type recordingNotifier struct {
	mu    sync.Mutex
	freed []*model.Appointment
}

func (n *recordingNotifier) NotifyOpening(ctx context.Context, apt *model.Appointment) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.freed = append(n.freed, apt)
	return 1, nil
}

func TestUpdateStatusEmitsAndNotifiesWaitlist(t *testing.T) {
	f := newFixture(t)
	notifier := &recordingNotifier{}
	WithWaitlist(notifier)(f.scheduler)
	ctx := context.Background()

	apt, err := f.book(t, "staff-1", at(monday, 10, 0))
	require.NoError(t, err)

	_, err = f.scheduler.UpdateStatus(ctx, apt.ID, model.AppointmentStatusConfirmed)
	require.NoError(t, err)
	assert.Empty(t, notifier.freed)

	cancelled, err := f.scheduler.UpdateStatus(ctx, apt.ID, model.AppointmentStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	require.Len(t, notifier.freed, 1)
	assert.Equal(t, apt.ID, notifier.freed[0].ID)

	assert.Len(t, f.outbox.EventsOfType(model.EventAppointmentStatusChanged), 2)

	_, err = f.scheduler.UpdateStatus(ctx, apt.ID, model.AppointmentStatusConfirmed)
	assert.True(t, errors.Is(err, apperrors.InvalidStatusTransitionError))

	_, err = f.book(t, "staff-1", at(monday, 10, 0))
	assert.NoError(t, err, "cancelled slot can be rebooked")
}

func TestSweepMissedEmitsStatusChange(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.AutoConfirm = true })
	ctx := context.Background()

	early, err := f.book(t, "staff-1", at(monday, 9, 0))
	require.NoError(t, err)
	_, err = f.book(t, "staff-1", at(monday, 15, 0))
	require.NoError(t, err)

	n, err := f.scheduler.SweepMissed(ctx, at(monday, 12, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	events := f.outbox.EventsOfType(model.EventAppointmentStatusChanged)
	require.Len(t, events, 1)
	assert.Equal(t, early.ID, events[0].AggregateID)
	assert.Contains(t, string(events[0].Payload), `"to":"missed"`)

	_, err = f.book(t, "staff-1", at(monday, 9, 0))
	assert.True(t, errors.Is(err, apperrors.SlotUnavailableError), "missed appointments keep their slot")
}
