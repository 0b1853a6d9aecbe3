package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

func TestOutboxCreateRejectsEmptyPayload(t *testing.T) {
	base, _ := newMockBase(t)
	repo := NewOutboxRepository(base)

	assert.Error(t, repo.Create(context.Background(), &model.OutboxEvent{EventType: "x"}))
	assert.Error(t, repo.Create(context.Background(), nil))
}

func TestOutboxClaimPending(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewOutboxRepository(base)

	older := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)
	cols := []string{
		"id", "event_type", "aggregate_id", "payload", "status", "error_message",
		"created_at", "processed_at", "updated_at", "retry_count", "retry_at",
	}
	rows := sqlmock.NewRows(cols).
		AddRow("evt-2", model.EventAppointmentCreated, "apt-2", []byte(`{"id":"apt-2"}`), "processing", nil, newer, nil, newer, 0, nil).
		AddRow("evt-1", model.EventAppointmentCreated, "apt-1", []byte(`{"id":"apt-1"}`), "processing", nil, older, nil, older, 1, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(model.OutboxStatusProcessing, sqlmock.AnyArg(), model.OutboxStatusPending, sqlmock.AnyArg(), 10).
		WillReturnRows(rows)

	events, err := repo.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, 1, events[0].RetryCount)
	assert.JSONEq(t, `{"id":"apt-1"}`, string(events[0].Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxMarkFailed(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewOutboxRepository(base)

	retryAt := time.Now().Add(time.Minute)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events")).
		WithArgs(model.OutboxStatusPending, "boom", &retryAt, sqlmock.AnyArg(), "evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkFailed(context.Background(), "evt-1", "boom", &retryAt))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events")).
		WithArgs(model.OutboxStatusFailed, "boom", nil, sqlmock.AnyArg(), "evt-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkFailed(context.Background(), "evt-1", "boom", nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxCreate(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewOutboxRepository(base)

	evt := &model.OutboxEvent{
		EventType:   model.EventAppointmentCreated,
		AggregateID: "apt-1",
		Payload:     json.RawMessage(`{"id":"apt-1"}`),
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), evt))
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, model.OutboxStatusPending, evt.Status)
}
