package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/quantfold/equilens-ai-go/internal/api/handlers"
	"github.com/quantfold/equilens-ai-go/internal/middleware"
)

// Dependencies bundles the wired handlers and middleware for route setup.
// Nil optional handlers leave their routes unregistered.
type Dependencies struct {
	Analysis *handlers.AnalysisHandler
	Health   *handlers.HealthHandler
	Cache    *handlers.CacheHandler
	Cleanup  *handlers.CleanupHandler
	Users    *handlers.UserHandler
	Telegram *handlers.TelegramHandler

	Auth    *middleware.AuthMiddleware
	Admin   *middleware.AdminMiddleware
	Limiter *middleware.RateLimiter
}

// SetupRoutes registers every endpoint on the engine.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(otelgin.Middleware("equilens-ai-go"))
	if deps.Limiter != nil {
		router.Use(deps.Limiter.Limit())
	}

	if deps.Health != nil {
		router.GET("/health", deps.Health.GetHealth)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	if deps.Analysis != nil {
		v1.POST("/analysis", deps.Analysis.RunAnalysis)
		v1.GET("/analysis/history", deps.Analysis.GetHistory)
		v1.GET("/analysis/:id", deps.Analysis.GetAnalysis)
		v1.POST("/scenario", deps.Analysis.RunScenario)
		v1.GET("/signals/:ticker", deps.Analysis.GetSignals)
	}

	if deps.Users != nil && deps.Auth != nil {
		users := v1.Group("/users")
		users.POST("/register", deps.Users.Register)
		users.POST("/login", deps.Users.Login)

		profile := users.Group("")
		profile.Use(deps.Auth.RequireAuth())
		profile.GET("/profile", deps.Users.Profile)
		profile.PUT("/profile", deps.Users.UpdateProfile)
	}

	if deps.Telegram != nil {
		v1.POST("/telegram/webhook", deps.Telegram.HandleWebhook)
	}

	if deps.Admin != nil {
		admin := v1.Group("/admin")
		admin.Use(deps.Admin.RequireAdminAuth())
		if deps.Cache != nil {
			admin.GET("/cache/stats", deps.Cache.GetStats)
			admin.DELETE("/cache/:ticker", deps.Cache.InvalidateTicker)
		}
		if deps.Cleanup != nil {
			admin.POST("/cleanup", deps.Cleanup.TriggerCleanup)
		}
		if deps.Health != nil {
			admin.GET("/system", deps.Health.GetSystemInfo)
		}
	}
}
