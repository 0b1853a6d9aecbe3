package model

import (
	"database/sql/driver"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// RecurrencePattern describes a repeating booking. Dates are YYYY-MM-DD in
// the scheduling time zone. CustomPattern holds an RRULE body such as
// "FREQ=WEEKLY;BYDAY=TU,TH".
type RecurrencePattern struct {
	Frequency     Frequency `json:"frequency"`
	Interval      int       `json:"interval,omitempty"`
	DaysOfWeek    []int     `json:"days_of_week,omitempty"`
	DayOfMonth    int       `json:"day_of_month,omitempty"`
	WeekOfMonth   int       `json:"week_of_month,omitempty"`
	CustomPattern string    `json:"custom_pattern,omitempty"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	ExcludedDates []string  `json:"excluded_dates,omitempty"`
}

func (p RecurrencePattern) Value() (driver.Value, error) { return valueJSON(p) }
func (p *RecurrencePattern) Scan(src interface{}) error { return scanJSON(src, p) }

type SeriesStatus string

const (
	SeriesStatusActive    SeriesStatus = "active"
	SeriesStatusCancelled SeriesStatus = "cancelled"
)

// RecurringSeries is the booking definition that occurrences reference.
type RecurringSeries struct {
	Base
	UserID    string            `db:"user_id" json:"user_id"`
	ServiceID string            `db:"service_id" json:"service_id"`
	StaffID   string            `db:"staff_id" json:"staff_id"`
	TimeOfDay string            `db:"time_of_day" json:"time_of_day"`
	Pattern   RecurrencePattern `db:"pattern" json:"pattern"`
	Status    SeriesStatus      `db:"status" json:"status"`
}

// OccurrenceResult reports the booking outcome for one occurrence date.
type OccurrenceResult struct {
	Date        string       `json:"date"`
	Appointment *Appointment `json:"appointment,omitempty"`
	Error       string       `json:"error,omitempty"`
	err         error
}

func NewOccurrenceResult(date time.Time, apt *Appointment, err error) OccurrenceResult {
	r := OccurrenceResult{Date: date.Format(DateLayout), Appointment: apt, err: err}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func (r OccurrenceResult) Err() error { return r.err }

func (r OccurrenceResult) Booked() bool { return r.err == nil && r.Appointment != nil }

type SeriesResult struct {
	Series      *RecurringSeries   `json:"series"`
	Occurrences []OccurrenceResult `json:"occurrences"`
	Booked      int                `json:"booked"`
	Failed      int                `json:"failed"`
}

// CreateAppointmentRequest covers single and recurring bookings.
type CreateAppointmentRequest struct {
	ServiceID         string             `json:"service_id" binding:"required"`
	StaffID           string             `json:"staff_id" binding:"required"`
	StartTime         time.Time          `json:"start_time" binding:"required"`
	Notes             string             `json:"notes" binding:"max=1000"`
	IsRecurring       bool               `json:"is_recurring"`
	RecurrencePattern *RecurrencePattern `json:"recurrence_pattern" binding:"required_if=IsRecurring true"`
}
