// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adminnext/internal/domain/admin"
	"adminnext/internal/infrastructure/http/v1/handlers"
	"adminnext/internal/infrastructure/http/v1/middleware"
	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// DB is the database every request session is opened on
	DB *sqldb.DB

	// Service builds the admin views
	Service *admin.Service

	// Logger for request logging
	Logger *logger.Logger

	// Prefix is the mount point of the admin routes, "/admin" when empty
	Prefix string

	// CORSOrigins lists allowed browser origins; "*" or empty allows all
	CORSOrigins []string

	// Metrics receives the HTTP collectors; nil disables /metrics
	Metrics *prometheus.Registry

	// Debug enables gin debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Trace())
	// Logger and metrics wrap Recovery so they see the 500 of a panic
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(middleware.NewMetrics(cfg.Metrics).Handler())
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no session required)
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Service.Registry())
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "/admin"
	}

	group := router.Group(prefix)
	group.Use(middleware.DBSession(cfg.DB)) // 1. One session per request
	group.Use(middleware.Actor())           // 2. Operator name for audit entries

	handler := handlers.NewAdminHandler(handlers.NewBaseHandler(), cfg.Service)
	RegisterAdminRoutes(group, handler)

	return router
}
