package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CleanupRunner triggers one maintenance pass.
type CleanupRunner interface {
	RunCleanup(ctx context.Context) error
}

// CleanupHandler exposes the maintenance pass to admins.
type CleanupHandler struct {
	cleanup CleanupRunner
	logger  *logrus.Logger
}

// NewCleanupHandler creates the handler.
func NewCleanupHandler(cleanup CleanupRunner, logger *logrus.Logger) *CleanupHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CleanupHandler{
		cleanup: cleanup,
		logger:  logger,
	}
}

// TriggerCleanup handles POST /api/v1/admin/cleanup.
func (h *CleanupHandler) TriggerCleanup(c *gin.Context) {
	if h.cleanup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cleanup service not running"})
		return
	}

	if err := h.cleanup.RunCleanup(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("manual cleanup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
