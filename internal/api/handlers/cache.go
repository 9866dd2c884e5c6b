package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CacheHandler serves the admin cache endpoints.
type CacheHandler struct {
	analysis AnalysisAPI
	logger   *logrus.Logger
}

// NewCacheHandler creates the handler.
func NewCacheHandler(analysis AnalysisAPI, logger *logrus.Logger) *CacheHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CacheHandler{
		analysis: analysis,
		logger:   logger,
	}
}

// GetStats handles GET /api/v1/admin/cache/stats.
func (h *CacheHandler) GetStats(c *gin.Context) {
	stats := h.analysis.CacheStats()
	c.JSON(http.StatusOK, gin.H{
		"stats":    stats,
		"hit_rate": stats.HitRate(),
	})
}

// InvalidateTicker handles DELETE /api/v1/admin/cache/:ticker. Drops every
// cached entry for the ticker so the next query recomputes.
func (h *CacheHandler) InvalidateTicker(c *gin.Context) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	removed, err := h.analysis.InvalidateTicker(c.Request.Context(), ticker)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("cache invalidation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache invalidation failed"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"ticker":  ticker,
		"removed": removed,
	}).Info("cache invalidated")

	c.JSON(http.StatusOK, gin.H{
		"ticker":  ticker,
		"removed": removed,
	})
}
