package services

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

const (
	defaultRefreshSchedule = "*/15 * * * *"
	refreshTimeout         = 60 * time.Second
)

// WatchlistRefresher keeps the result cache warm for a configured set of
// tickers by re-running their full analyses on a cron schedule. A refresh
// pass is best-effort: a failing ticker is logged and skipped.
type WatchlistRefresher struct {
	analysis *AnalysisService
	tickers  []string
	schedule string
	logger   *logrus.Logger

	cron *cron.Cron
}

// NewWatchlistRefresher creates a refresher from the watchlist config. The
// tickers value is a comma-separated list.
func NewWatchlistRefresher(analysis *AnalysisService, cfg config.WatchlistConfig, logger *logrus.Logger) *WatchlistRefresher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	schedule := cfg.RefreshSchedule
	if schedule == "" {
		schedule = defaultRefreshSchedule
	}

	var tickers []string
	for _, raw := range strings.Split(cfg.Tickers, ",") {
		if t := strings.ToUpper(strings.TrimSpace(raw)); t != "" {
			tickers = append(tickers, t)
		}
	}

	return &WatchlistRefresher{
		analysis: analysis,
		tickers:  tickers,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the cron entry and begins scheduling. A refresher with an
// empty watchlist stays idle.
func (w *WatchlistRefresher) Start() error {
	if len(w.tickers) == 0 {
		w.logger.Info("watchlist empty, refresher idle")
		return nil
	}

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		w.RefreshOnce(ctx)
	}); err != nil {
		return err
	}
	w.cron.Start()

	w.logger.WithFields(logrus.Fields{
		"tickers":  len(w.tickers),
		"schedule": w.schedule,
	}).Info("watchlist refresher started")
	return nil
}

// Stop halts scheduling and waits for a running pass to finish.
func (w *WatchlistRefresher) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.logger.Info("watchlist refresher stopped")
}

// RefreshOnce warms every watchlist ticker and returns how many refreshed.
func (w *WatchlistRefresher) RefreshOnce(ctx context.Context) int {
	start := time.Now()
	refreshed := 0

	for _, ticker := range w.tickers {
		if ctx.Err() != nil {
			break
		}
		if err := w.refreshTicker(ctx, ticker); err != nil {
			w.logger.WithError(err).WithField("ticker", ticker).Warn("watchlist refresh failed")
			continue
		}
		refreshed++
	}

	w.logger.WithFields(logrus.Fields{
		"refreshed":   refreshed,
		"total":       len(w.tickers),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("watchlist refresh pass completed")
	return refreshed
}

func (w *WatchlistRefresher) refreshTicker(ctx context.Context, ticker string) error {
	if _, err := w.analysis.InvalidateTicker(ctx, ticker); err != nil {
		return err
	}
	_, err := w.analysis.Analyze(ctx, models.AnalysisRequest{
		Ticker:       ticker,
		AnalysisType: models.AnalysisFull,
	})
	return err
}
