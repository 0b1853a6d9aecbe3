package scheduler

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

// rrule weekdays indexed by time.Weekday.
var weekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ValidatePattern reports whether p can be expanded.
func ValidatePattern(p *model.RecurrencePattern, loc *time.Location) error {
	_, _, err := buildSet(p, loc)
	return err
}

// ExpandRecurrence yields occurrence dates (midnight in loc) in order. Dates
// are strictly after the calendar day of from; when from precedes the
// pattern start, the start date itself is eligible. The sequence ends after
// EndDate and skips ExcludedDates.
func ExpandRecurrence(p *model.RecurrencePattern, from time.Time, loc *time.Location) (iter.Seq[time.Time], error) {
	set, start, err := buildSet(p, loc)
	if err != nil {
		return nil, err
	}

	bound, inclusive := model.StartOfDay(from, loc), false
	if bound.Before(start) {
		bound, inclusive = start, true
	}

	return func(yield func(time.Time) bool) {
		next := set.Iterator()
		for {
			t, ok := next()
			if !ok {
				return
			}
			if t.Before(bound) || (!inclusive && t.Equal(bound)) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}, nil
}

// NextOccurrence returns the first element of ExpandRecurrence. ok is false
// when the pattern has no further occurrences.
func NextOccurrence(p *model.RecurrencePattern, from time.Time, loc *time.Location) (next time.Time, ok bool, err error) {
	seq, err := ExpandRecurrence(p, from, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	for t := range seq {
		return t, true, nil
	}
	return time.Time{}, false, nil
}

func invalidPattern(format string, args ...interface{}) error {
	return apperrors.NewInvalidRecurrencePattern(fmt.Sprintf(format, args...), nil)
}

// buildSet translates p into an rrule set anchored at StartDate midnight in
// loc and bounded by EndDate inclusive.
func buildSet(p *model.RecurrencePattern, loc *time.Location) (*rrule.Set, time.Time, error) {
	if p == nil {
		return nil, time.Time{}, invalidPattern("recurrence pattern is required")
	}
	if loc == nil {
		loc = time.UTC
	}

	start, err := model.ParseDate(p.StartDate, loc)
	if err != nil {
		return nil, time.Time{}, invalidPattern("invalid start_date %q", p.StartDate)
	}
	if p.EndDate == "" {
		return nil, time.Time{}, invalidPattern("end_date is required")
	}
	end, err := model.ParseDate(p.EndDate, loc)
	if err != nil {
		return nil, time.Time{}, invalidPattern("invalid end_date %q", p.EndDate)
	}
	if !end.After(start) {
		return nil, time.Time{}, invalidPattern("end_date must be after start_date")
	}

	interval := p.Interval
	if interval < 0 {
		return nil, time.Time{}, invalidPattern("interval must be at least 1")
	}
	if interval == 0 {
		interval = 1
	}

	var opt *rrule.ROption
	switch p.Frequency {
	case model.FrequencyDaily:
		opt = &rrule.ROption{Freq: rrule.DAILY}

	case model.FrequencyWeekly:
		days, err := byWeekday(p.DaysOfWeek, 0)
		if err != nil {
			return nil, time.Time{}, err
		}
		if len(days) == 0 {
			return nil, time.Time{}, invalidPattern("weekly recurrence needs at least one day of week")
		}
		opt = &rrule.ROption{Freq: rrule.WEEKLY, Byweekday: days}

	case model.FrequencyMonthly:
		opt, err = monthlyOption(p)
		if err != nil {
			return nil, time.Time{}, err
		}

	case model.FrequencyCustom:
		opt, err = customOption(p.CustomPattern)
		if err != nil {
			return nil, time.Time{}, err
		}
		interval = opt.Interval

	default:
		return nil, time.Time{}, invalidPattern("unknown frequency %q", p.Frequency)
	}

	opt.Interval = interval
	opt.Dtstart = start
	if opt.Until.IsZero() || opt.Until.After(end) {
		opt.Until = end
	}

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, time.Time{}, apperrors.NewInvalidRecurrencePattern("invalid recurrence rule", err)
	}

	set := &rrule.Set{}
	set.RRule(rule)
	for _, d := range p.ExcludedDates {
		ex, err := model.ParseDate(d, loc)
		if err != nil {
			return nil, time.Time{}, invalidPattern("invalid excluded date %q", d)
		}
		set.ExDate(ex)
	}
	return set, start, nil
}

func monthlyOption(p *model.RecurrencePattern) (*rrule.ROption, error) {
	hasDay, hasWeek := p.DayOfMonth != 0, p.WeekOfMonth != 0
	if hasDay == hasWeek {
		return nil, invalidPattern("monthly recurrence needs exactly one of day_of_month or week_of_month")
	}

	if hasDay {
		if p.DayOfMonth < 1 || p.DayOfMonth > 31 {
			return nil, invalidPattern("day_of_month must be between 1 and 31")
		}
		return &rrule.ROption{Freq: rrule.MONTHLY, Bymonthday: []int{p.DayOfMonth}}, nil
	}

	if p.WeekOfMonth < 1 || p.WeekOfMonth > 5 {
		return nil, invalidPattern("week_of_month must be between 1 and 5")
	}
	nth := p.WeekOfMonth
	if nth == 5 {
		nth = -1
	}
	days, err := byWeekday(p.DaysOfWeek, nth)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, invalidPattern("week_of_month needs days_of_week")
	}
	return &rrule.ROption{Freq: rrule.MONTHLY, Byweekday: days}, nil
}

func customOption(pattern string) (*rrule.ROption, error) {
	body := strings.TrimSpace(pattern)
	body = strings.TrimPrefix(body, "RRULE:")
	if body == "" {
		return nil, invalidPattern("custom recurrence needs custom_pattern")
	}
	if !strings.Contains(strings.ToUpper(body), "FREQ=") {
		return nil, invalidPattern("custom_pattern must set FREQ")
	}

	opt, err := rrule.StrToROption(body)
	if err != nil {
		return nil, apperrors.NewInvalidRecurrencePattern("invalid custom_pattern", err)
	}
	if opt.Freq > rrule.DAILY || len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 {
		return nil, invalidPattern("custom_pattern must repeat at most once per day")
	}
	if opt.Interval < 1 {
		opt.Interval = 1
	}
	return opt, nil
}

func byWeekday(days []int, nth int) ([]rrule.Weekday, error) {
	seen := make(map[int]bool, len(days))
	out := make([]rrule.Weekday, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, invalidPattern("day of week %d out of range 0-6", d)
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		if nth != 0 {
			out = append(out, weekdays[d].Nth(nth))
		} else {
			out = append(out, weekdays[d])
		}
	}
	return out, nil
}
