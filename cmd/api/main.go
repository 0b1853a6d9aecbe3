package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/internal/app"
	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/handler/health"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Console:    cfg.Logging.Console,
	})
	log.Logger = appLogger.Zerolog()
	gin.SetMode(gin.ReleaseMode)

	m := metrics.NewMetrics("booking", "api", prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, db, err := app.OpenStorage(ctx, cfg, appLogger, m)
	if err != nil {
		appLogger.Fatal(err, "failed to open storage")
	}
	var pinger health.Pinger
	if db != nil {
		defer db.Close()
		pinger = db
	}

	svcs, err := app.NewServices(repos, cfg, appLogger, m)
	if err != nil {
		appLogger.Fatal(err, "failed to initialise services")
	}

	engine, err := app.NewHTTPHandler(cfg, svcs, pinger, prometheus.DefaultGatherer, m)
	if err != nil {
		appLogger.Fatal(err, "failed to build router")
	}

	// Relay outbox events from this process as well
	if cfg.Outbox.Enabled {
		broker, err := app.NewBroker(cfg, appLogger)
		if err != nil {
			appLogger.Fatal(err, "failed to connect to message broker")
		}
		defer broker.Close()

		processor, err := worker.NewOutboxProcessor(repos.Outbox, broker, cfg.Outbox.ToWorkerConfig(), appLogger, m)
		if err != nil {
			appLogger.Fatal(err, "failed to create outbox processor")
		}
		go processor.Start(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("api listening", "addr", srv.Addr, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "server forced to shutdown")
		os.Exit(1)
	}

	appLogger.Info("server exited properly")
}
