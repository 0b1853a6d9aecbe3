package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

const waitlistColumns = `
	id, user_id, service_id, staff_id, preferred_dates, status,
	priority, notes, expires_at, notified_at, created_at, updated_at`

type waitlistRepository struct {
	BaseRepository
}

func NewWaitlistRepository(base BaseRepository) repository.WaitlistRepository {
	return &waitlistRepository{base}
}

func (r *waitlistRepository) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	query := `
		INSERT INTO waitlist_entries (` + waitlistColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.UpdatedAt = entry.CreatedAt
	if entry.PreferredDates == nil {
		entry.PreferredDates = model.PreferredDates{}
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.ServiceID,
		entry.StaffID,
		entry.PreferredDates,
		entry.Status,
		entry.Priority,
		entry.Notes,
		entry.ExpiresAt,
		entry.NotifiedAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	r.observe("waitlist_create", err)
	if err != nil {
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

func (r *waitlistRepository) Get(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = $1`

	var entry model.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if err = notFound(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *waitlistRepository) ListByUser(ctx context.Context, userID string) ([]*model.WaitlistEntry, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM waitlist_entries
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	var entries []*model.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list waitlist entries: %w", err)
	}
	return entries, nil
}

// ListActiveForService returns unexpired active entries, highest priority
// first and oldest first within a priority.
func (r *waitlistRepository) ListActiveForService(ctx context.Context, serviceID string, now time.Time) ([]*model.WaitlistEntry, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM waitlist_entries
		WHERE service_id = $1
		AND status = $2
		AND expires_at > $3
		ORDER BY priority DESC, created_at ASC
	`
	var entries []*model.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, serviceID, model.WaitlistStatusActive, now); err != nil {
		return nil, fmt.Errorf("failed to list active waitlist entries: %w", err)
	}
	return entries, nil
}

func (r *waitlistRepository) UpdateStatus(ctx context.Context, id string, status model.WaitlistStatus, notifiedAt *time.Time) error {
	query := `
		UPDATE waitlist_entries
		SET status = $1, notified_at = COALESCE($2, notified_at), updated_at = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query, status, notifiedAt, time.Now().UTC(), id)
	r.observe("waitlist_update_status", err)
	if err != nil {
		return fmt.Errorf("failed to update waitlist entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *waitlistRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE waitlist_entries
		SET status = $1, updated_at = $2
		WHERE status IN ($3, $4)
		AND expires_at <= $2
	`
	result, err := r.db.ExecContext(ctx, query,
		model.WaitlistStatusExpired, now,
		model.WaitlistStatusActive, model.WaitlistStatusNotified,
	)
	r.observe("waitlist_expire", err)
	if err != nil {
		return 0, fmt.Errorf("failed to expire waitlist entries: %w", err)
	}
	return result.RowsAffected()
}
