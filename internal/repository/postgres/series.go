package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

type seriesRepository struct {
	BaseRepository
}

func NewSeriesRepository(base BaseRepository) repository.SeriesRepository {
	return &seriesRepository{base}
}

func (r *seriesRepository) Create(ctx context.Context, series *model.RecurringSeries) error {
	query := `
		INSERT INTO recurring_series (
			id, user_id, service_id, staff_id, time_of_day,
			pattern, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if series.ID == "" {
		series.ID = uuid.NewString()
	}
	series.CreatedAt = time.Now().UTC()
	series.UpdatedAt = series.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		series.ID,
		series.UserID,
		series.ServiceID,
		series.StaffID,
		series.TimeOfDay,
		series.Pattern,
		series.Status,
		series.CreatedAt,
		series.UpdatedAt,
	)
	r.observe("series_create", err)
	if err != nil {
		return fmt.Errorf("failed to create recurring series: %w", err)
	}
	return nil
}

func (r *seriesRepository) Get(ctx context.Context, id string) (*model.RecurringSeries, error) {
	query := `
		SELECT id, user_id, service_id, staff_id, time_of_day,
			   pattern, status, created_at, updated_at
		FROM recurring_series
		WHERE id = $1
	`
	var series model.RecurringSeries
	if err := r.db.GetContext(ctx, &series, query, id); err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get recurring series: %w", err)
	}
	return &series, nil
}
