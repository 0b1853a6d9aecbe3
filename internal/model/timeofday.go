package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

var timeOfDayPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// TimeOfDay is a wall clock time in minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay accepts 24-hour HH:mm (a single-digit hour is tolerated).
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	m := timeOfDayPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, apperrors.NewInvalidTimeFormat(value)
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return TimeOfDay(h*60 + mins), nil
}

// IsTimeOfDay reports whether value is a valid HH:mm string.
func IsTimeOfDay(value string) bool {
	return timeOfDayPattern.MatchString(value)
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On places t on the calendar day of date in loc.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
}

// TimeOfDayOf returns the wall clock time of t in loc.
func TimeOfDayOf(t time.Time, loc *time.Location) TimeOfDay {
	lt := t.In(loc)
	return TimeOfDay(lt.Hour()*60 + lt.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
