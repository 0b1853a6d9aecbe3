// Package postgres implements the repository interfaces on PostgreSQL via
// sqlx. Overlap protection for the booking ledger is enforced by an
// exclusion constraint, see migrations/0001_init.sql.
package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// NewRepositories builds every postgres repository over one pool.
func NewRepositories(db *sqlx.DB, m *metrics.Metrics) *repository.Repositories {
	base := NewBaseRepository(db, m)
	return &repository.Repositories{
		Appointments: NewAppointmentRepository(base),
		Availability: NewAvailabilityRepository(base),
		Services:     NewServiceRepository(base),
		Series:       NewSeriesRepository(base),
		Waitlist:     NewWaitlistRepository(base),
		Outbox:       NewOutboxRepository(base),
	}
}
