package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

// BuildAvailability parses and validates a write request. Nothing is stored
// unless the whole request is valid.
func BuildAvailability(staffID string, req *model.SetAvailabilityRequest) (*model.StaffAvailability, error) {
	if req == nil {
		return nil, apperrors.NewBadRequest("availability is required", nil)
	}

	weekly := make(model.WeeklySchedule, len(req.Weekly))
	for day, inputs := range req.Weekly {
		if day < 0 || day > 6 {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid weekday %d, expected 0-6", day), nil)
		}

		shifts := make([]model.Shift, 0, len(inputs))
		for _, in := range inputs {
			shift, err := parseShift(in.Start, in.End, in.Breaks)
			if err != nil {
				return nil, err
			}
			shifts = append(shifts, shift)
		}

		sort.Slice(shifts, func(i, j int) bool { return shifts[i].Start < shifts[j].Start })
		for i := 1; i < len(shifts); i++ {
			if shifts[i].Start < shifts[i-1].End {
				return nil, apperrors.NewOverlappingShift(fmt.Sprintf(
					"shifts %s-%s and %s-%s overlap on weekday %d",
					shifts[i-1].Start, shifts[i-1].End, shifts[i].Start, shifts[i].End, day))
			}
		}
		if len(shifts) > 0 {
			weekly[time.Weekday(day)] = shifts
		}
	}

	overrides := make(model.DateOverrides, 0, len(req.Overrides))
	seen := make(map[string]bool, len(req.Overrides))
	for _, in := range req.Overrides {
		ov, err := parseOverride(in)
		if err != nil {
			return nil, err
		}
		if seen[ov.Date] {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("duplicate override for %s", ov.Date), nil)
		}
		seen[ov.Date] = true
		overrides = append(overrides, ov)
	}
	sortOverrides(overrides)

	return &model.StaffAvailability{
		StaffID:   staffID,
		Weekly:    weekly,
		Overrides: overrides,
	}, nil
}

func parseOverride(in model.OverrideInput) (model.DateOverride, error) {
	date, err := model.ParseDate(in.Date, time.UTC)
	if err != nil {
		return model.DateOverride{}, apperrors.NewBadRequest(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", in.Date), err)
	}
	ov := model.DateOverride{
		Date:      date.Format(model.DateLayout),
		Available: in.Available,
		Note:      in.Note,
	}
	if !in.Available {
		return ov, nil
	}

	if in.Start == "" || in.End == "" {
		return model.DateOverride{}, apperrors.New(apperrors.ErrInvalidTimeFormat,
			fmt.Sprintf("override for %s needs both start and end", ov.Date), nil)
	}
	shift, err := parseShift(in.Start, in.End, in.Breaks)
	if err != nil {
		return model.DateOverride{}, err
	}
	ov.Start = &shift.Start
	ov.End = &shift.End
	ov.Breaks = shift.Breaks
	return ov, nil
}

func parseShift(start, end string, breakInputs []model.BreakInput) (model.Shift, error) {
	s, e, err := parseRange(start, end)
	if err != nil {
		return model.Shift{}, err
	}
	shift := model.Shift{Start: s, End: e}

	for _, in := range breakInputs {
		bs, be, err := parseRange(in.Start, in.End)
		if err != nil {
			return model.Shift{}, err
		}
		if bs < s || be > e {
			return model.Shift{}, apperrors.NewBreakOutOfRange(fmt.Sprintf(
				"break %s-%s is outside shift %s-%s", bs, be, s, e))
		}
		shift.Breaks = append(shift.Breaks, model.Break{Start: bs, End: be})
	}

	sort.Slice(shift.Breaks, func(i, j int) bool { return shift.Breaks[i].Start < shift.Breaks[j].Start })
	for i := 1; i < len(shift.Breaks); i++ {
		prev, cur := shift.Breaks[i-1], shift.Breaks[i]
		if cur.Start < prev.End {
			return model.Shift{}, apperrors.NewOverlappingShift(fmt.Sprintf(
				"breaks %s-%s and %s-%s overlap", prev.Start, prev.End, cur.Start, cur.End))
		}
	}
	return shift, nil
}

func parseRange(start, end string) (model.TimeOfDay, model.TimeOfDay, error) {
	s, err := model.ParseTimeOfDay(start)
	if err != nil {
		return 0, 0, err
	}
	e, err := model.ParseTimeOfDay(end)
	if err != nil {
		return 0, 0, err
	}
	if e <= s {
		return 0, 0, apperrors.NewInvalidTimeRange(fmt.Sprintf("end %s must be after start %s", e, s))
	}
	return s, e, nil
}

func sortOverrides(overrides model.DateOverrides) {
	sort.Slice(overrides, func(i, j int) bool { return overrides[i].Date < overrides[j].Date })
}
