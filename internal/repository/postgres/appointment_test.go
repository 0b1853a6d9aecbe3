package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

func newMockBase(t *testing.T) (BaseRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBaseRepository(sqlx.NewDb(db, "sqlmock"), metrics.New("test")), mock
}

func testAppointment() *model.Appointment {
	start := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	return &model.Appointment{
		UserID:    "user-1",
		StaffID:   "staff-1",
		ServiceID: "svc-1",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    model.AppointmentStatusPending,
	}
}

func TestAppointmentInsert(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewAppointmentRepository(base)

	apt := testAppointment()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appointments")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), apt))
	assert.NotEmpty(t, apt.ID)
	assert.False(t, apt.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentInsertMapsExclusionViolation(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewAppointmentRepository(base)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appointments")).
		WillReturnError(&pq.Error{Code: "23P01", Message: "conflicting key value violates exclusion constraint"})

	err := repo.Insert(context.Background(), testAppointment())
	assert.ErrorIs(t, err, repository.ErrOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentGetNotFound(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewAppointmentRepository(base)

	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppointmentFindConflicts(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewAppointmentRepository(base)

	start := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "staff_id", "service_id", "series_id",
		"start_time", "end_time", "status", "notes", "created_at", "updated_at",
	}).AddRow("apt-1", "user-1", "staff-1", "svc-1", nil,
		start.Add(30*time.Minute), end.Add(30*time.Minute), "confirmed", "", start, start)

	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments")).
		WithArgs("staff-1", sqlmock.AnyArg(), start, end).
		WillReturnRows(rows)

	conflicts, err := repo.FindConflicts(context.Background(), "staff-1", start, end)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "apt-1", conflicts[0].ID)
	assert.Equal(t, model.AppointmentStatusConfirmed, conflicts[0].Status)
	assert.Nil(t, conflicts[0].SeriesID)
}

func TestAppointmentUpdateStatus(t *testing.T) {
	update := regexp.QuoteMeta("UPDATE appointments")
	exists := regexp.QuoteMeta("SELECT EXISTS")

	t.Run("applied", func(t *testing.T) {
		base, mock := newMockBase(t)
		repo := NewAppointmentRepository(base)

		mock.ExpectExec(update).
			WithArgs(model.AppointmentStatusConfirmed, sqlmock.AnyArg(), "apt-1", model.AppointmentStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateStatus(context.Background(), "apt-1",
			model.AppointmentStatusPending, model.AppointmentStatusConfirmed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale", func(t *testing.T) {
		base, mock := newMockBase(t)
		repo := NewAppointmentRepository(base)

		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(exists).WithArgs("apt-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := repo.UpdateStatus(context.Background(), "apt-1",
			model.AppointmentStatusPending, model.AppointmentStatusConfirmed)
		assert.ErrorIs(t, err, repository.ErrStaleStatus)
	})

	t.Run("missing", func(t *testing.T) {
		base, mock := newMockBase(t)
		repo := NewAppointmentRepository(base)

		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(exists).WithArgs("apt-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := repo.UpdateStatus(context.Background(), "apt-1",
			model.AppointmentStatusPending, model.AppointmentStatusConfirmed)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}
