package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"adminnext/internal/domain/admin"
	"adminnext/internal/infrastructure/storage/sqldb"
)

// Version is reported by the info endpoint. Set at build time with -ldflags.
var Version = "0.1.0"

// HealthHandler serves liveness, readiness and info probes.
type HealthHandler struct {
	db       *sqldb.DB
	registry *admin.Registry
	started  time.Time
}

// NewHealthHandler creates a new health handler. registry may be nil.
func NewHealthHandler(db *sqldb.DB, registry *admin.Registry) *HealthHandler {
	return &HealthHandler{db: db, registry: registry, started: time.Now()}
}

// Live reports that the process is up.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the database answers and model registration has finished.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := map[string]string{"database": "healthy", "registry": "frozen"}
	ready := true

	if err := h.db.Health(c.Request.Context()); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		ready = false
	}
	if h.registry != nil && !h.registry.Frozen() {
		checks["registry"] = "registration in progress"
		ready = false
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

// Info returns the version, registered models and pool statistics.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	stat := h.db.Stats()

	models := 0
	if h.registry != nil {
		models = len(h.registry.Models())
	}

	c.JSON(http.StatusOK, gin.H{
		"app":            "adminnext",
		"version":        Version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"models":         models,
		"database": gin.H{
			"dialect":          h.db.Dialect().Name(),
			"open_conns":       stat.OpenConnections,
			"in_use":           stat.InUse,
			"idle":             stat.Idle,
			"max_open_conns":   stat.MaxOpenConnections,
			"wait_count":       stat.WaitCount,
			"wait_duration_ms": stat.WaitDuration.Milliseconds(),
		},
	})
}
