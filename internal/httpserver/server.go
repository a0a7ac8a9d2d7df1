package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PratikDhanave/event-scheduling-service/internal/handlers"
	"github.com/PratikDhanave/event-scheduling-service/internal/logger"
	"github.com/PratikDhanave/event-scheduling-service/internal/telemetry"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps is everything the router needs.
type Deps struct {
	Events      handlers.EventService
	Users       handlers.UserService
	Timezones   handlers.TimezoneCatalog
	DB          Pinger
	Logger      *zap.Logger
	CORSOrigins []string
	Tracing     bool
}

// NewRouter wires public endpoints and the versioned API.
// Public: /health, /ready
// API: /api/v1/events, /api/v1/users, /api/v1/timeZones
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	if d.Tracing {
		r.Use(telemetry.Middleware())
	}
	r.Use(logger.Middleware(log))
	r.Use(CORS(d.CORSOrigins))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the DB dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := d.DB.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	api := r.Group("/api/v1")
	handlers.RegisterEventRoutes(api, d.Events, log)
	handlers.RegisterUserRoutes(api, d.Users, log)
	handlers.RegisterTimezoneRoutes(api, d.Timezones)

	return r
}
