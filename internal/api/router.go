package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/autou/mailtriage/internal/app"
	"github.com/autou/mailtriage/internal/handlers"
	"github.com/autou/mailtriage/internal/ingest"
	"github.com/autou/mailtriage/internal/middleware"
	"github.com/autou/mailtriage/internal/sendauth"
)

// Deps carries everything the router mounts. Ingestor and Suggester may be
// nil when the corresponding backend is not configured; their routes then
// answer with a clear error instead of disappearing.
type Deps struct {
	DB        *gorm.DB
	Config    *app.Config
	SendAuth  *sendauth.Service
	Ingestor  *ingest.Ingestor
	Suggester handlers.ReplySuggester
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.SendAuth == nil {
		return nil, fmt.Errorf("send authorization service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(deps.Config.Server.FrontendOrigins))
	// Basic rate limiting per IP+path; the send flow has its own stricter limits
	r.Use(middleware.RateLimit(deps.Config.Server.RateLimit, time.Minute))

	r.NoRoute(middleware.NotFoundHandler)

	// Health and metrics (public)
	r.GET("/health", handlers.Health(deps.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if err := registerTriageRoutes(r, deps); err != nil {
		return nil, err
	}
	registerSendRoutes(r, deps)

	return r, nil
}
