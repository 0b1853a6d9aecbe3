package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/internal/app"
	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/worker"
)

func setupHealthCheck(port int, ready func(context.Context) error, logger *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Health check server failed")
		}
	}()
	return srv
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	workerLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Console:    cfg.Logging.Console,
	}).WithFields(map[string]interface{}{"component": "worker"})
	log.Logger = workerLogger.Zerolog()

	m := metrics.NewMetrics("booking", "worker", prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, db, err := app.OpenStorage(ctx, cfg, workerLogger, m)
	if err != nil {
		workerLogger.Fatal(err, "Failed to open storage")
	}
	ready := func(context.Context) error { return nil }
	if db != nil {
		defer db.Close()
		ready = db.PingContext
	}

	svcs, err := app.NewServices(repos, cfg, workerLogger, m)
	if err != nil {
		workerLogger.Fatal(err, "Failed to initialise services")
	}

	jobs := worker.NewJobScheduler(workerLogger)
	mustAdd := func(name, spec string, job worker.JobFunc) {
		if err := jobs.Add(name, spec, job); err != nil {
			workerLogger.Fatal(err, "Failed to register job", "job", name)
		}
	}

	mustAdd("waitlist-expiry", cfg.Worker.WaitlistSchedule, func(ctx context.Context) error {
		_, err := svcs.Waitlist.ExpireStale(ctx)
		return err
	})
	mustAdd("outbox-cleanup", cfg.Worker.CleanupSchedule, func(ctx context.Context) error {
		_, err := svcs.Events.CleanupProcessedEvents(ctx)
		return err
	})
	mustAdd("missed-appointments", cfg.Worker.MissedSchedule, func(ctx context.Context) error {
		_, err := svcs.Scheduler.SweepMissed(ctx, app.MissedCutoff(cfg, time.Now()))
		return err
	})

	healthSrv := setupHealthCheck(cfg.Worker.HealthPort, ready, workerLogger)

	if cfg.Outbox.Enabled {
		broker, err := app.NewBroker(cfg, workerLogger)
		if err != nil {
			workerLogger.Fatal(err, "Failed to create message broker")
		}
		defer broker.Close()

		processor, err := worker.NewOutboxProcessor(repos.Outbox, broker, cfg.Outbox.ToWorkerConfig(), workerLogger, m)
		if err != nil {
			workerLogger.Fatal(err, "Failed to create outbox processor")
		}
		go processor.Start(ctx)
	}

	jobs.Start()
	workerLogger.Info("Worker started")

	<-ctx.Done()
	workerLogger.Info("Shutting down...")
	jobs.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)
}
