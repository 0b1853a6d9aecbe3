package availability

import (
	"sort"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
)

// ResolveShifts returns the working intervals of date, net of breaks and in
// start order. A date override replaces the weekly template entirely.
func ResolveShifts(av *model.StaffAvailability, date time.Time, loc *time.Location) []model.TimeSlot {
	if av == nil {
		return nil
	}
	day := model.StartOfDay(date, loc)

	if ov, ok := av.Overrides.Find(day.Format(model.DateLayout)); ok {
		if !ov.Available {
			return nil
		}
		if ov.Start != nil && ov.End != nil {
			return netOfBreaks(model.Shift{Start: *ov.Start, End: *ov.End, Breaks: ov.Breaks}, day, loc)
		}
	}

	shifts := append([]model.Shift(nil), av.Weekly[day.Weekday()]...)
	sort.Slice(shifts, func(i, j int) bool { return shifts[i].Start < shifts[j].Start })

	var out []model.TimeSlot
	for _, shift := range shifts {
		out = append(out, netOfBreaks(shift, day, loc)...)
	}
	return out
}

func netOfBreaks(shift model.Shift, day time.Time, loc *time.Location) []model.TimeSlot {
	breaks := append([]model.Break(nil), shift.Breaks...)
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].Start < breaks[j].Start })

	var out []model.TimeSlot
	cursor := shift.Start
	for _, b := range breaks {
		if b.Start > cursor {
			out = append(out, model.TimeSlot{Start: cursor.On(day, loc), End: b.Start.On(day, loc)})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}
	if cursor < shift.End {
		out = append(out, model.TimeSlot{Start: cursor.On(day, loc), End: shift.End.On(day, loc)})
	}
	return out
}
