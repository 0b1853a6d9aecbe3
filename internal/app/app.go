// Package app assembles repositories, services and transports from
// configuration. cmd/api and cmd/worker share it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	"github.com/jwalitptl/booking-api/internal/repository/postgres"
	"github.com/jwalitptl/booking-api/internal/service/availability"
	"github.com/jwalitptl/booking-api/internal/service/catalog"
	"github.com/jwalitptl/booking-api/internal/service/event"
	"github.com/jwalitptl/booking-api/internal/service/ledger"
	"github.com/jwalitptl/booking-api/internal/service/scheduler"
	"github.com/jwalitptl/booking-api/internal/service/waitlist"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/messaging"
	kafkabroker "github.com/jwalitptl/booking-api/pkg/messaging/kafka"
	redisbroker "github.com/jwalitptl/booking-api/pkg/messaging/redis"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

type Services struct {
	Availability *availability.Service
	Ledger       *ledger.Service
	Events       *event.Service
	Waitlist     *waitlist.Service
	Catalog      *catalog.Service
	Scheduler    *scheduler.Scheduler
}

// OpenStorage returns the repositories for the configured driver. The
// returned db is nil for the memory driver.
func OpenStorage(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*repository.Repositories, *sqlx.DB, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.NewRepositories(), nil, nil
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return postgres.NewRepositories(db, m), db, nil
}

// NewServices wires the domain services over repos.
func NewServices(repos *repository.Repositories, cfg *config.Config, log *logger.Logger, m *metrics.Metrics, opts ...scheduler.Option) (*Services, error) {
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return nil, err
	}

	s := &Services{}
	s.Availability = availability.NewService(repos.Availability, loc, cfg.Scheduling.SlotCacheTTL, log)
	s.Ledger = ledger.NewService(repos.Appointments, log, m)
	s.Events = event.NewService(repos.Outbox, log, cfg.Outbox.Retention)
	s.Waitlist = waitlist.NewService(repos.Waitlist, repos.Services, s.Events, loc, cfg.Waitlist.ExpiryDays, log, m)
	s.Catalog = catalog.NewService(repos.Services, log)

	opts = append([]scheduler.Option{
		scheduler.WithWaitlist(s.Waitlist),
		scheduler.WithMetrics(m),
	}, opts...)
	s.Scheduler = scheduler.New(
		repos.Services,
		repos.Series,
		s.Availability,
		s.Ledger,
		s.Events,
		scheduler.Config{
			AutoConfirm:    cfg.Scheduling.AutoConfirm,
			MaxOccurrences: cfg.Scheduling.MaxOccurrences,
			Location:       loc,
		},
		log,
		opts...,
	)
	return s, nil
}

// NewBroker returns the event relay target for the configured driver.
func NewBroker(cfg *config.Config, log *logger.Logger) (messaging.Broker, error) {
	switch cfg.Messaging.Driver {
	case "redis":
		return redisbroker.NewRedisBroker(cfg.Redis.ToBrokerConfig(), log)
	case "kafka":
		return kafkabroker.NewKafkaBroker(cfg.Kafka.ToBrokerConfig(), log)
	default:
		return messaging.NewLogBroker(log), nil
	}
}

// MissedCutoff is the end time before which confirmed appointments count
// as missed.
func MissedCutoff(cfg *config.Config, now time.Time) time.Time {
	return now.Add(-cfg.Scheduling.MissedGracePeriod)
}
