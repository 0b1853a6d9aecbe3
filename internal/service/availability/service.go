// Package availability stores staff working hours and answers which
// intervals of a date are bookable.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
)

// MaxTimeOffDays bounds a single time-off request.
const MaxTimeOffDays = 366

type Service struct {
	repo   repository.AvailabilityRepository
	cache  *cache.Cache
	loc    *time.Location
	logger *logger.Logger
}

// NewService creates the store. A ttl of zero disables the read cache.
func NewService(repo repository.AvailabilityRepository, loc *time.Location, ttl time.Duration, log *logger.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{repo: repo, loc: loc, logger: log}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// GetShiftsFor returns the working intervals of date for staffID. A staff
// member without stored availability has none.
func (s *Service) GetShiftsFor(ctx context.Context, staffID string, date time.Time) ([]model.TimeSlot, error) {
	av, err := s.load(ctx, staffID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ResolveShifts(av, date, s.loc), nil
}

func (s *Service) GetAvailability(ctx context.Context, staffID string) (*model.StaffAvailability, error) {
	av, err := s.load(ctx, staffID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("availability", err)
		}
		return nil, err
	}
	return av, nil
}

// SetAvailability validates and replaces the weekly template and overrides.
func (s *Service) SetAvailability(ctx context.Context, staffID string, req *model.SetAvailabilityRequest) (*model.StaffAvailability, error) {
	if staffID == "" {
		return nil, apperrors.NewBadRequest("staff id is required", nil)
	}
	av, err := BuildAvailability(staffID, req)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, av); err != nil {
		return nil, err
	}
	s.logger.Info("availability updated", "staff_id", staffID, "weekdays", len(av.Weekly), "overrides", len(av.Overrides))
	return av, nil
}

// AddTimeOff marks every date in [from, to] unavailable, replacing any
// override already stored for those dates.
func (s *Service) AddTimeOff(ctx context.Context, staffID string, req *model.TimeOffRequest) (*model.StaffAvailability, error) {
	from, err := model.ParseDate(req.From, s.loc)
	if err != nil {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.From), err)
	}
	to, err := model.ParseDate(req.To, s.loc)
	if err != nil {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.To), err)
	}
	if to.Before(from) {
		return nil, apperrors.NewInvalidTimeRange("time off must end on or after its first day")
	}

	dates := make(map[string]bool)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates[d.Format(model.DateLayout)] = true
		if len(dates) > MaxTimeOffDays {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("time off cannot exceed %d days", MaxTimeOffDays), nil)
		}
	}

	// Read-modify-write goes to the repository; the cache may hold another
	// instance's older document.
	current, err := s.repo.Get(ctx, staffID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}
	av := &model.StaffAvailability{StaffID: staffID, Weekly: model.WeeklySchedule{}}
	if current != nil {
		av.Weekly = current.Weekly
		for _, ov := range current.Overrides {
			if !dates[ov.Date] {
				av.Overrides = append(av.Overrides, ov)
			}
		}
	}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		av.Overrides = append(av.Overrides, model.DateOverride{
			Date: d.Format(model.DateLayout),
			Note: req.Note,
		})
	}
	sortOverrides(av.Overrides)

	if err := s.save(ctx, av); err != nil {
		return nil, err
	}
	s.logger.Info("time off added", "staff_id", staffID, "from", req.From, "to", req.To)
	return av, nil
}

func (s *Service) load(ctx context.Context, staffID string) (*model.StaffAvailability, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(staffID); ok {
			return v.(*model.StaffAvailability), nil
		}
	}

	av, err := s.repo.Get(ctx, staffID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}

	if s.cache != nil {
		s.cache.SetDefault(staffID, av)
	}
	return av, nil
}

func (s *Service) save(ctx context.Context, av *model.StaffAvailability) error {
	if err := s.repo.Upsert(ctx, av); err != nil {
		return fmt.Errorf("failed to save availability: %w", err)
	}
	if s.cache != nil {
		s.cache.Delete(av.StaffID)
	}
	return nil
}
