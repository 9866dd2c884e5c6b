package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/middleware"
	"github.com/quantfold/equilens-ai-go/internal/models"
	"github.com/quantfold/equilens-ai-go/internal/observability"
	"github.com/quantfold/equilens-ai-go/pkg/interfaces"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// AnalysisAPI is the slice of the analysis service the HTTP layer consumes.
type AnalysisAPI interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
	NormalizedSignals(ctx context.Context, ticker string) (*models.SignalSet, error)
	GetStored(ctx context.Context, id string) (*interfaces.StoredAnalysis, error)
	History(ctx context.Context, ticker string, limit int) ([]interfaces.StoredAnalysis, error)
	InvalidateTicker(ctx context.Context, ticker string) (int64, error)
	CacheStats() interfaces.CacheStats
}

// AnalysisHandler serves the reconciliation endpoints.
type AnalysisHandler struct {
	analysis AnalysisAPI
	logger   *logrus.Logger
}

// NewAnalysisHandler creates the handler.
func NewAnalysisHandler(analysis AnalysisAPI, logger *logrus.Logger) *AnalysisHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AnalysisHandler{
		analysis: analysis,
		logger:   logger,
	}
}

// RunAnalysis handles POST /api/v1/analysis.
func (h *AnalysisHandler) RunAnalysis(c *gin.Context) {
	var req models.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	middleware.AddSpanAttribute(c, "analysis.ticker", strings.ToUpper(req.Ticker))

	result, err := h.analysis.Analyze(c.Request.Context(), req)
	if err != nil {
		h.respondAnalysisError(c, req.Ticker, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RunScenario handles POST /api/v1/scenario. The scenario key is mandatory
// here, unlike the generic analysis endpoint.
func (h *AnalysisHandler) RunScenario(c *gin.Context) {
	var req models.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}
	if strings.TrimSpace(req.Scenario) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scenario is required"})
		return
	}
	req.AnalysisType = models.AnalysisScenario

	result, err := h.analysis.Analyze(c.Request.Context(), req)
	if err != nil {
		h.respondAnalysisError(c, req.Ticker, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAnalysis handles GET /api/v1/analysis/:id.
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	id := c.Param("id")

	stored, err := h.analysis.GetStored(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrAnalysisNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
			return
		}
		h.logger.WithError(err).WithField("id", id).Error("failed to load stored analysis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analysis"})
		return
	}

	c.JSON(http.StatusOK, stored)
}

// GetHistory handles GET /api/v1/analysis/history?ticker=&limit=.
func (h *AnalysisHandler) GetHistory(c *gin.Context) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Query("ticker")))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker parameter is required"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := h.analysis.History(c.Request.Context(), ticker, limit)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("failed to list history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticker":  ticker,
		"count":   len(entries),
		"entries": entries,
	})
}

// GetSignals handles GET /api/v1/signals/:ticker.
func (h *AnalysisHandler) GetSignals(c *gin.Context) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	signals, err := h.analysis.NormalizedSignals(c.Request.Context(), ticker)
	if err != nil {
		h.respondAnalysisError(c, ticker, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticker":  ticker,
		"signals": signals,
	})
}

func (h *AnalysisHandler) respondAnalysisError(c *gin.Context, ticker string, err error) {
	switch {
	case models.IsInvalidScenario(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case strings.Contains(err.Error(), "ticker is required"),
		strings.Contains(err.Error(), "unknown analysis type"):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithField("ticker", ticker).Error("analysis failed")
		middleware.RecordError(c, err, "analysis failed")
		observability.CaptureException(c.Request.Context(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "analysis failed, upstream data unavailable"})
	}
}
