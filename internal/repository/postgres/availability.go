package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

type availabilityRepository struct {
	BaseRepository
}

func NewAvailabilityRepository(base BaseRepository) repository.AvailabilityRepository {
	return &availabilityRepository{base}
}

func (r *availabilityRepository) Get(ctx context.Context, staffID string) (*model.StaffAvailability, error) {
	query := `
		SELECT staff_id, weekly, overrides, created_at, updated_at
		FROM staff_availability
		WHERE staff_id = $1
	`
	var availability model.StaffAvailability
	if err := r.db.GetContext(ctx, &availability, query, staffID); err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	return &availability, nil
}

// Upsert replaces the weekly template and overrides as one document.
func (r *availabilityRepository) Upsert(ctx context.Context, availability *model.StaffAvailability) error {
	query := `
		INSERT INTO staff_availability (staff_id, weekly, overrides, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (staff_id) DO UPDATE
		SET weekly = EXCLUDED.weekly,
			overrides = EXCLUDED.overrides,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`
	if availability.Weekly == nil {
		availability.Weekly = model.WeeklySchedule{}
	}
	if availability.Overrides == nil {
		availability.Overrides = model.DateOverrides{}
	}

	row := r.db.QueryRowxContext(ctx, query,
		availability.StaffID,
		availability.Weekly,
		availability.Overrides,
		time.Now().UTC(),
	)
	err := row.Scan(&availability.CreatedAt, &availability.UpdatedAt)
	r.observe("availability_upsert", err)
	if err != nil {
		return fmt.Errorf("failed to save availability: %w", err)
	}
	return nil
}
