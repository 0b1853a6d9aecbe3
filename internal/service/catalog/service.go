package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
)

type Service struct {
	repo   repository.ServiceRepository
	logger *logger.Logger
}

func NewService(repo repository.ServiceRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, logger: log}
}

func (s *Service) CreateService(ctx context.Context, req *model.CreateServiceRequest) (*model.Service, error) {
	svc := &model.Service{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		StaffIDs:        dedupe(req.StaffIDs),
		Active:          true,
	}
	if req.Active != nil {
		svc.Active = *req.Active
	}

	if err := validateService(svc); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	s.logger.Info("service created", "service_id", svc.ID, "name", svc.Name)
	return svc, nil
}

func (s *Service) GetService(ctx context.Context, id string) (*model.Service, error) {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("service", err)
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return svc, nil
}

// UpdateService applies the non-nil fields of req.
func (s *Service) UpdateService(ctx context.Context, id string, req *model.UpdateServiceRequest) (*model.Service, error) {
	svc, err := s.GetService(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		svc.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.DurationMinutes != nil {
		svc.DurationMinutes = *req.DurationMinutes
	}
	if req.Price != nil {
		svc.Price = *req.Price
	}
	if req.StaffIDs != nil {
		svc.StaffIDs = dedupe(req.StaffIDs)
	}
	if req.Active != nil {
		svc.Active = *req.Active
	}

	if err := validateService(svc); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, svc); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("service", err)
		}
		return nil, fmt.Errorf("failed to update service: %w", err)
	}
	return svc, nil
}

func (s *Service) ListServices(ctx context.Context, filters *model.ServiceFilters) ([]*model.Service, error) {
	services, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	if services == nil {
		services = []*model.Service{}
	}
	return services, nil
}

func validateService(svc *model.Service) error {
	if svc.Name == "" {
		return apperrors.NewBadRequest("service name is required", nil)
	}
	if svc.DurationMinutes < model.MinServiceDuration {
		return apperrors.NewBadRequest(fmt.Sprintf("duration must be at least %d minutes", model.MinServiceDuration), nil)
	}
	if svc.Price < 0 {
		return apperrors.NewBadRequest("price must not be negative", nil)
	}
	for _, id := range svc.StaffIDs {
		if strings.TrimSpace(id) == "" {
			return apperrors.NewBadRequest("staff id must not be empty", nil)
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
