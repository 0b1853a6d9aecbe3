package model

import (
	"time"

	"github.com/lib/pq"
)

// MinServiceDuration is the shortest bookable service, in minutes.
const MinServiceDuration = 15

type Service struct {
	Base
	Name            string         `db:"name" json:"name"`
	Description     string         `db:"description" json:"description"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	Price           float64        `db:"price" json:"price"`
	StaffIDs        pq.StringArray `db:"staff_ids" json:"staff_ids"`
	Active          bool           `db:"is_active" json:"is_active"`
}

func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// HasStaff reports whether staffID is assigned to the service.
func (s *Service) HasStaff(staffID string) bool {
	for _, id := range s.StaffIDs {
		if id == staffID {
			return true
		}
	}
	return false
}

type ServiceFilters struct {
	ActiveOnly bool
	StaffID    string
}

type CreateServiceRequest struct {
	Name            string   `json:"name" binding:"required,max=200"`
	Description     string   `json:"description" binding:"max=2000"`
	DurationMinutes int      `json:"duration_minutes" binding:"required,min=15"`
	Price           float64  `json:"price" binding:"min=0"`
	StaffIDs        []string `json:"staff_ids" binding:"dive,required"`
	Active          *bool    `json:"is_active"`
}

type UpdateServiceRequest struct {
	Name            *string  `json:"name" binding:"omitempty,max=200"`
	Description     *string  `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes *int     `json:"duration_minutes" binding:"omitempty,min=15"`
	Price           *float64 `json:"price" binding:"omitempty,min=0"`
	StaffIDs        []string `json:"staff_ids" binding:"omitempty,dive,required"`
	Active          *bool    `json:"is_active"`
}
