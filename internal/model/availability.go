package model

import (
	"database/sql/driver"
	"time"
)

type Break struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

type Shift struct {
	Start  TimeOfDay `json:"start"`
	End    TimeOfDay `json:"end"`
	Breaks []Break   `json:"breaks,omitempty"`
}

// WeeklySchedule maps a weekday to its ordered shifts.
type WeeklySchedule map[time.Weekday][]Shift

func (w WeeklySchedule) Value() (driver.Value, error) { return valueJSON(w) }
func (w *WeeklySchedule) Scan(src interface{}) error { return scanJSON(src, w) }

// DateOverride replaces the weekly template for one date.
type DateOverride struct {
	Date      string     `json:"date"`
	Available bool       `json:"available"`
	Start     *TimeOfDay `json:"start,omitempty"`
	End       *TimeOfDay `json:"end,omitempty"`
	Breaks    []Break    `json:"breaks,omitempty"`
	Note      string     `json:"note,omitempty"`
}

type DateOverrides []DateOverride

func (o DateOverrides) Value() (driver.Value, error) { return valueJSON(o) }
func (o *DateOverrides) Scan(src interface{}) error { return scanJSON(src, o) }

// Find returns the override for date, if any.
func (o DateOverrides) Find(date string) (DateOverride, bool) {
	for _, ov := range o {
		if ov.Date == date {
			return ov, true
		}
	}
	return DateOverride{}, false
}

type StaffAvailability struct {
	StaffID   string         `db:"staff_id" json:"staff_id"`
	Weekly    WeeklySchedule `db:"weekly" json:"weekly"`
	Overrides DateOverrides  `db:"overrides" json:"overrides"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Write-side request shapes. Times stay strings so that parsing can report
// the offending value.
type BreakInput struct {
	Start string `json:"start" binding:"required,hhmm"`
	End   string `json:"end" binding:"required,hhmm"`
}

type ShiftInput struct {
	Start  string       `json:"start" binding:"required,hhmm"`
	End    string       `json:"end" binding:"required,hhmm"`
	Breaks []BreakInput `json:"breaks" binding:"dive"`
}

type OverrideInput struct {
	Date      string       `json:"date" binding:"required"`
	Available bool         `json:"available"`
	Start     string       `json:"start" binding:"omitempty,hhmm"`
	End       string       `json:"end" binding:"omitempty,hhmm"`
	Breaks    []BreakInput `json:"breaks" binding:"dive"`
	Note      string       `json:"note" binding:"max=500"`
}

type SetAvailabilityRequest struct {
	Weekly    map[int][]ShiftInput `json:"weekly" binding:"dive,dive"`
	Overrides []OverrideInput      `json:"overrides" binding:"dive"`
}

type TimeOffRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
	Note string `json:"note" binding:"max=500"`
}
