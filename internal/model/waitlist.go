package model

import (
	"database/sql/driver"
	"time"
)

type WaitlistStatus string

const (
	WaitlistStatusActive    WaitlistStatus = "active"
	WaitlistStatusNotified  WaitlistStatus = "notified"
	WaitlistStatusBooked    WaitlistStatus = "booked"
	WaitlistStatusExpired   WaitlistStatus = "expired"
	WaitlistStatusCancelled WaitlistStatus = "cancelled"
)

type TimeWindow struct {
	Start string `json:"start" binding:"required,hhmm"`
	End   string `json:"end" binding:"required,hhmm"`
}

type PreferredDate struct {
	Date    string       `json:"date" binding:"required"`
	Windows []TimeWindow `json:"windows,omitempty" binding:"dive"`
}

type PreferredDates []PreferredDate

func (p PreferredDates) Value() (driver.Value, error) { return valueJSON(p) }
func (p *PreferredDates) Scan(src interface{}) error { return scanJSON(src, p) }

type WaitlistEntry struct {
	Base
	UserID         string         `db:"user_id" json:"user_id"`
	ServiceID      string         `db:"service_id" json:"service_id"`
	StaffID        string         `db:"staff_id" json:"staff_id,omitempty"`
	PreferredDates PreferredDates `db:"preferred_dates" json:"preferred_dates"`
	Status         WaitlistStatus `db:"status" json:"status"`
	Priority       int            `db:"priority" json:"priority"`
	Notes          string         `db:"notes" json:"notes,omitempty"`
	ExpiresAt      time.Time      `db:"expires_at" json:"expires_at"`
	NotifiedAt     *time.Time     `db:"notified_at" json:"notified_at,omitempty"`
}

// Matches reports whether a freed slot with staffID satisfies the entry's
// preferences. An entry without a preferred staff member or dates accepts
// any.
func (e *WaitlistEntry) Matches(staffID string, slot TimeSlot, loc *time.Location) bool {
	if e.StaffID != "" && e.StaffID != staffID {
		return false
	}
	if len(e.PreferredDates) == 0 {
		return true
	}

	date := slot.Start.In(loc).Format(DateLayout)
	for _, pd := range e.PreferredDates {
		if pd.Date != date {
			continue
		}
		if len(pd.Windows) == 0 {
			return true
		}
		for _, w := range pd.Windows {
			start, err := ParseTimeOfDay(w.Start)
			if err != nil {
				continue
			}
			end, err := ParseTimeOfDay(w.End)
			if err != nil {
				continue
			}
			window := TimeSlot{Start: start.On(slot.Start, loc), End: end.On(slot.Start, loc)}
			if window.Overlaps(slot) {
				return true
			}
		}
	}
	return false
}

type JoinWaitlistRequest struct {
	ServiceID      string          `json:"service_id" binding:"required"`
	StaffID        string          `json:"staff_id"`
	PreferredDates []PreferredDate `json:"preferred_dates" binding:"dive"`
	Priority       int             `json:"priority" binding:"min=0,max=100"`
	Notes          string          `json:"notes" binding:"max=1000"`
}
