package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/pkg/interfaces"
)

const (
	defaultHistoryRetentionDays = 90
	defaultCleanupIntervalMin   = 60
)

// expiredSweeper is implemented by caches that expire lazily and need a
// periodic bulk sweep. The Redis cache expires server-side and does not.
type expiredSweeper interface {
	SweepExpired() int64
}

// CleanupService prunes aged analysis history and sweeps expired cache
// entries on a fixed interval.
type CleanupService struct {
	repo   interfaces.AnalysisRepository
	cache  interfaces.AnalysisCache
	config config.CleanupConfig
	logger *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCleanupService creates a cleanup service. Repository and cache are both
// optional; a nil dependency skips that pass.
func NewCleanupService(repo interfaces.AnalysisRepository, resultCache interfaces.AnalysisCache, cfg config.CleanupConfig, logger *logrus.Logger) *CleanupService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.HistoryRetentionDays <= 0 {
		cfg.HistoryRetentionDays = defaultHistoryRetentionDays
	}
	if cfg.CleanupIntervalMinutes <= 0 {
		cfg.CleanupIntervalMinutes = defaultCleanupIntervalMin
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupService{
		repo:   repo,
		cache:  resultCache,
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the periodic cleanup loop, running one pass immediately.
func (c *CleanupService) Start() {
	c.logger.WithFields(logrus.Fields{
		"retention_days":   c.config.HistoryRetentionDays,
		"interval_minutes": c.config.CleanupIntervalMinutes,
	}).Info("starting cleanup service")

	go func() {
		if err := c.RunCleanup(c.ctx); err != nil {
			c.logger.WithError(err).Warn("initial cleanup pass failed")
		}
	}()

	ticker := time.NewTicker(time.Duration(c.config.CleanupIntervalMinutes) * time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				if err := c.RunCleanup(c.ctx); err != nil {
					c.logger.WithError(err).Warn("cleanup pass failed")
				}
			}
		}
	}()
}

// Stop halts the periodic loop.
func (c *CleanupService) Stop() {
	c.logger.Info("stopping cleanup service")
	c.cancel()
}

// RunCleanup executes one full pass: history pruning, then cache sweep.
func (c *CleanupService) RunCleanup(ctx context.Context) error {
	if c.repo != nil {
		cutoff := time.Now().AddDate(0, 0, -c.config.HistoryRetentionDays)
		pruned, err := c.repo.PruneOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("failed to prune analysis history: %w", err)
		}
		if pruned > 0 {
			c.logger.WithFields(logrus.Fields{
				"pruned": pruned,
				"cutoff": cutoff.Format(time.RFC3339),
			}).Info("pruned aged analysis history")
		}
	}

	if c.cache != nil {
		if sweeper, ok := c.cache.(expiredSweeper); ok {
			if swept := sweeper.SweepExpired(); swept > 0 {
				c.logger.WithField("swept", swept).Debug("swept expired cache entries")
			}
		}
		c.cache.LogStats()
	}

	return nil
}
