package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quantfold/equilens-ai-go/internal/services"
)

// Pinger reports backend liveness.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// ProviderChecker reports market-data sidecar liveness.
type ProviderChecker interface {
	IsHealthy(ctx context.Context) bool
}

// HealthHandler serves liveness and diagnostics endpoints. Any nil
// dependency is reported as "disabled" rather than failing the check.
type HealthHandler struct {
	db       Pinger
	redis    Pinger
	provider ProviderChecker
	monitor  *services.ResourceMonitor
	version  string
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

// NewHealthHandler creates the handler.
func NewHealthHandler(db, redis Pinger, provider ProviderChecker, monitor *services.ResourceMonitor, version string) *HealthHandler {
	return &HealthHandler{
		db:       db,
		redis:    redis,
		provider: provider,
		monitor:  monitor,
		version:  version,
	}
}

// GetHealth handles GET /health.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Services:  make(map[string]string, 4),
	}

	degraded := false
	check := func(name string, err error) {
		if err != nil {
			response.Services[name] = "error"
			degraded = true
			return
		}
		response.Services[name] = "ok"
	}

	if h.db != nil {
		check("database", h.db.HealthCheck(ctx))
	} else {
		response.Services["database"] = "disabled"
	}
	if h.redis != nil {
		check("redis", h.redis.HealthCheck(ctx))
	} else {
		response.Services["redis"] = "disabled"
	}
	if h.provider != nil {
		if h.provider.IsHealthy(ctx) {
			response.Services["data_service"] = "ok"
		} else {
			response.Services["data_service"] = "error"
			degraded = true
		}
	} else {
		response.Services["data_service"] = "disabled"
	}
	if h.monitor != nil {
		if h.monitor.Healthy() {
			response.Services["resources"] = "ok"
		} else {
			response.Services["resources"] = "strained"
			degraded = true
		}
	}

	statusCode := http.StatusOK
	if degraded {
		response.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// GetSystemInfo handles GET /api/v1/admin/system. Admin only.
func (h *HealthHandler) GetSystemInfo(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "resource monitor not running"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"system":  h.monitor.SystemInfo(),
		"history": h.monitor.History(20),
	})
}
