package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/api"
	"github.com/quantfold/equilens-ai-go/internal/api/handlers"
	"github.com/quantfold/equilens-ai-go/internal/cache"
	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/database"
	"github.com/quantfold/equilens-ai-go/internal/logging"
	"github.com/quantfold/equilens-ai-go/internal/metrics"
	"github.com/quantfold/equilens-ai-go/internal/middleware"
	"github.com/quantfold/equilens-ai-go/internal/observability"
	"github.com/quantfold/equilens-ai-go/internal/services"
	"github.com/quantfold/equilens-ai-go/internal/telemetry"
	"github.com/quantfold/equilens-ai-go/pkg/marketdata"
)

func main() {
	// Local development convenience; the file is absent in deployment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)

	if err := observability.InitSentry(cfg.Sentry, telemetry.ServiceVersion, cfg.Environment); err != nil {
		logger.WithError(err).Warn("Sentry initialization failed, continuing without error tracking")
	}

	traceShutdown, err := telemetry.InitTracing(cfg.Telemetry, cfg.Environment)
	if err != nil {
		logger.WithError(err).Warn("Trace export disabled")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := traceShutdown(ctx); err != nil {
				logger.WithError(err).Warn("Trace shutdown incomplete")
			}
		}()
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.OTLPEndpoint != "" {
		hook, err := logging.NewOTLPHook(context.Background(),
			cfg.Telemetry.OTLPEndpoint, "equilens-ai-go", telemetry.ServiceVersion, cfg.Environment)
		if err != nil {
			logger.WithError(err).Warn("OTLP log export disabled")
		} else {
			logger.AddHook(hook)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := hook.Shutdown(ctx); err != nil {
					logger.WithError(err).Warn("OTLP log shutdown incomplete")
				}
			}()
		}
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	provider := marketdata.NewService(&cfg.DataService)
	ctx := context.Background()
	if err := provider.Initialize(ctx); err != nil {
		logger.WithError(err).Warn("Market data service not reachable yet, continuing degraded")
	}
	defer provider.Close()

	resultCache := cache.NewRedisAnalysisCache(redis.Client)
	pool := database.NewTracedDB(db.Pool, logger)
	repo := database.NewAnalysisRepository(pool)
	m := metrics.NewDefault()

	analysisService := services.NewAnalysisService(cfg, provider, resultCache, repo, m, logger)

	notifier := services.NewNotificationService(pool, cfg.Telegram, logger)
	if notifier.Enabled() {
		analysisService.SetAlerter(notifier)
	} else {
		logger.Info("Telegram alerting disabled, no bot token configured")
	}

	cleanupService := services.NewCleanupService(repo, resultCache, cfg.Cleanup, logger)
	cleanupService.Start()
	defer cleanupService.Stop()

	refresher := services.NewWatchlistRefresher(analysisService, cfg.Watchlist, logger)
	if err := refresher.Start(); err != nil {
		logger.WithError(err).Warn("Watchlist refresher failed to start")
	}
	defer refresher.Stop()

	monitor := services.NewResourceMonitor(services.ResourceMonitorConfig{}, logger)
	monitor.Start()
	defer monitor.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	auth := middleware.NewAuthMiddleware(cfg.Security.JWTSecret)
	api.SetupRoutes(router, api.Dependencies{
		Analysis: handlers.NewAnalysisHandler(analysisService, logger),
		Health:   handlers.NewHealthHandler(db, redis, provider, monitor, telemetry.ServiceVersion),
		Cache:    handlers.NewCacheHandler(analysisService, logger),
		Cleanup:  handlers.NewCleanupHandler(cleanupService, logger),
		Users:    handlers.NewUserHandler(pool, auth, cfg.Security, logger),
		Telegram: handlers.NewTelegramHandler(pool, analysisService, cfg.Telegram, logger),
		Auth:     auth,
		Admin:    middleware.NewAdminMiddleware(),
		Limiter:  middleware.NewRateLimiter(cfg.RateLimit),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}
	observability.Flush(shutdownCtx)

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
