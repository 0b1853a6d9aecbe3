package model

import (
	"encoding/json"
	"time"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Event types written to the outbox.
const (
	EventAppointmentCreated       = "appointment.created"
	EventAppointmentStatusChanged = "appointment.status_changed"
	EventSeriesCreated            = "appointment.series_created"
	EventWaitlistSlotAvailable    = "waitlist.slot_available"
)

type OutboxEvent struct {
	ID           string          `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	AggregateID  string          `db:"aggregate_id" json:"aggregate_id"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
}

type StatusChangedPayload struct {
	AppointmentID string            `json:"appointment_id"`
	UserID        string            `json:"user_id"`
	StaffID       string            `json:"staff_id"`
	ServiceID     string            `json:"service_id"`
	From          AppointmentStatus `json:"from"`
	To            AppointmentStatus `json:"to"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
}

type SlotAvailablePayload struct {
	WaitlistEntryID string    `json:"waitlist_entry_id"`
	UserID          string    `json:"user_id"`
	ServiceID       string    `json:"service_id"`
	StaffID         string    `json:"staff_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
}
