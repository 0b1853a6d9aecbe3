// Package waitlist lets users queue for a service and tells them when a
// cancellation frees a matching slot.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/service/event"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

const defaultExpiryDays = 30

type Service struct {
	repo     repository.WaitlistRepository
	services repository.ServiceRepository
	events   event.Emitter
	loc      *time.Location
	expiry   time.Duration
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	repo repository.WaitlistRepository,
	services repository.ServiceRepository,
	events event.Emitter,
	loc *time.Location,
	expiryDays int,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if expiryDays <= 0 {
		expiryDays = defaultExpiryDays
	}
	if loc == nil {
		loc = time.UTC
	}
	if events == nil {
		events = event.NopEmitter{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		services: services,
		events:   events,
		loc:      loc,
		expiry:   time.Duration(expiryDays) * 24 * time.Hour,
		logger:   log,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *Service) Join(ctx context.Context, userID string, req *model.JoinWaitlistRequest) (*model.WaitlistEntry, error) {
	svc, err := s.services.Get(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("service", err)
		}
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	if !svc.Active {
		return nil, apperrors.NewBadRequest("service is not active", nil)
	}
	if req.StaffID != "" && !svc.HasStaff(req.StaffID) {
		return nil, apperrors.NewBadRequest("staff member does not provide this service", nil)
	}

	prefs, err := validatePreferences(req.PreferredDates, s.loc)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := &model.WaitlistEntry{
		UserID:         userID,
		ServiceID:      req.ServiceID,
		StaffID:        req.StaffID,
		PreferredDates: prefs,
		Status:         model.WaitlistStatusActive,
		Priority:       req.Priority,
		Notes:          req.Notes,
		ExpiresAt:      now.Add(s.expiry),
	}
	entry.CreatedAt = now

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to join waitlist: %w", err)
	}
	s.logger.Info("waitlist joined", "entry_id", entry.ID, "user_id", userID, "service_id", req.ServiceID)
	return entry, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*model.WaitlistEntry, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	return entries, nil
}

// Cancel withdraws an entry. Only its owner may cancel it.
func (s *Service) Cancel(ctx context.Context, userID, id string) error {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("waitlist entry", err)
		}
		return fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	if entry.UserID != userID {
		return apperrors.Forbidden("waitlist entry belongs to another user")
	}
	if entry.Status != model.WaitlistStatusActive && entry.Status != model.WaitlistStatusNotified {
		return apperrors.NewBadRequest(fmt.Sprintf("waitlist entry is already %s", entry.Status), nil)
	}

	if err := s.repo.UpdateStatus(ctx, id, model.WaitlistStatusCancelled, nil); err != nil {
		return fmt.Errorf("failed to cancel waitlist entry: %w", err)
	}
	return nil
}

// NotifyOpening marks every active entry matching the freed appointment
// slot as notified and emits a waitlist.slot_available event for each.
func (s *Service) NotifyOpening(ctx context.Context, apt *model.Appointment) (int, error) {
	now := s.now().UTC()
	entries, err := s.repo.ListActiveForService(ctx, apt.ServiceID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list waitlist: %w", err)
	}

	slot := apt.Slot()
	notified := 0
	for _, entry := range entries {
		if !entry.Matches(apt.StaffID, slot, s.loc) {
			continue
		}
		if err := s.repo.UpdateStatus(ctx, entry.ID, model.WaitlistStatusNotified, &now); err != nil {
			return notified, fmt.Errorf("failed to mark waitlist entry notified: %w", err)
		}

		payload := model.SlotAvailablePayload{
			WaitlistEntryID: entry.ID,
			UserID:          entry.UserID,
			ServiceID:       apt.ServiceID,
			StaffID:         apt.StaffID,
			Start:           slot.Start,
			End:             slot.End,
		}
		if err := s.events.Emit(ctx, model.EventWaitlistSlotAvailable, entry.ID, payload); err != nil {
			s.logger.Error(err, "failed to emit waitlist event", "entry_id", entry.ID)
		}
		notified++
	}

	if notified > 0 {
		if s.metrics != nil {
			s.metrics.WaitlistNotified.Add(float64(notified))
		}
		s.logger.Info("waitlist notified", "appointment_id", apt.ID, "entries", notified)
	}
	return notified, nil
}

// ExpireStale expires active and notified entries past their expiry.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireBefore(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire waitlist entries: %w", err)
	}
	if n > 0 {
		s.logger.Info("waitlist entries expired", "count", n)
	}
	return n, nil
}

func validatePreferences(in []model.PreferredDate, loc *time.Location) (model.PreferredDates, error) {
	out := make(model.PreferredDates, 0, len(in))
	for _, pd := range in {
		d, err := model.ParseDate(pd.Date, loc)
		if err != nil {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", pd.Date), err)
		}
		for _, w := range pd.Windows {
			start, err := model.ParseTimeOfDay(w.Start)
			if err != nil {
				return nil, err
			}
			end, err := model.ParseTimeOfDay(w.End)
			if err != nil {
				return nil, err
			}
			if end <= start {
				return nil, apperrors.NewInvalidTimeRange(fmt.Sprintf("window end %s must be after start %s", end, start))
			}
		}
		out = append(out, model.PreferredDate{Date: d.Format(model.DateLayout), Windows: pd.Windows})
	}
	return out, nil
}
