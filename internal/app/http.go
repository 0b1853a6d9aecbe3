package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/handler/appointment"
	"github.com/jwalitptl/booking-api/internal/handler/catalog"
	"github.com/jwalitptl/booking-api/internal/handler/health"
	"github.com/jwalitptl/booking-api/internal/handler/staff"
	"github.com/jwalitptl/booking-api/internal/handler/waitlist"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/router"
	authpkg "github.com/jwalitptl/booking-api/pkg/auth"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// NewHTTPHandler builds the gin engine serving the API. db may be nil.
func NewHTTPHandler(
	cfg *config.Config,
	svcs *Services,
	db health.Pinger,
	gatherer prometheus.Gatherer,
	m *metrics.Metrics,
) (*gin.Engine, error) {
	if err := middleware.RegisterValidators(); err != nil {
		return nil, err
	}

	auth := middleware.NewAuthMiddleware(authpkg.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer))

	r := router.NewRouter(
		auth,
		health.NewHandler(db, gatherer),
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			Timeout:          time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			Metrics:          m,
		},
		appointment.NewHandler(svcs.Scheduler, svcs.Ledger),
		catalog.NewHandler(svcs.Catalog, svcs.Scheduler, auth.RequireRole(middleware.RoleAdmin)),
		staff.NewHandler(svcs.Availability),
		waitlist.NewHandler(svcs.Waitlist),
	)
	r.Setup()
	return r.Engine(), nil
}
