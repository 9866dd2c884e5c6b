package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	DataService DataServiceConfig `mapstructure:"data_service"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Ensemble    EnsembleConfig    `mapstructure:"ensemble"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Confidence  ConfidenceConfig  `mapstructure:"confidence"`
	Freshness   FreshnessConfig   `mapstructure:"freshness"`
	Universe    UniverseConfig    `mapstructure:"universe"`
	Watchlist   WatchlistConfig   `mapstructure:"watchlist"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Cleanup     CleanupConfig     `mapstructure:"cleanup"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Security    SecurityConfig    `mapstructure:"security"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DataServiceConfig points at the market-data sidecar that serves
// fundamentals, model forecasts, peer ratios and price history.
type DataServiceConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Timeout    int    `mapstructure:"timeout"`
}

// GetServiceURL returns the sidecar base URL.
func (c DataServiceConfig) GetServiceURL() string {
	return c.ServiceURL
}

// GetTimeout returns the request timeout in seconds.
func (c DataServiceConfig) GetTimeout() int {
	return c.Timeout
}

// CacheConfig carries the per-analysis-type TTLs for the result cache.
type CacheConfig struct {
	ForecastTTL     string `mapstructure:"forecast_ttl"`
	FundamentalsTTL string `mapstructure:"fundamentals_ttl"`
	RiskTTL         string `mapstructure:"risk_ttl"`
	ScenarioTTL     string `mapstructure:"scenario_ttl"`
	FullTTL         string `mapstructure:"full_ttl"`
}

// EnsembleConfig tunes the forecast combiner. The disagreement penalty
// scales combined confidence when the two models split on direction.
type EnsembleConfig struct {
	DisagreementPenalty float64 `mapstructure:"disagreement_penalty"`
	HighConfidenceLevel float64 `mapstructure:"high_confidence_level"`
}

// RiskConfig tunes the aggregator: component weights (normalized at load)
// and the bucket-boundary margin for the fragile-classification check.
type RiskConfig struct {
	LeverageWeight  float64 `mapstructure:"leverage_weight"`
	LiquidityWeight float64 `mapstructure:"liquidity_weight"`
	EarningsWeight  float64 `mapstructure:"earnings_weight"`
	BoundaryMargin  float64 `mapstructure:"boundary_margin"`
}

// ConfidenceConfig is the penalty table folded over contradictions and
// uncertainties. Values are subtracted from the 1.0 base.
type ConfidenceConfig struct {
	CriticalContradiction float64 `mapstructure:"critical_contradiction"`
	WarningContradiction  float64 `mapstructure:"warning_contradiction"`
	NoteContradiction     float64 `mapstructure:"note_contradiction"`
	HighUncertainty       float64 `mapstructure:"high_uncertainty"`
	MediumUncertainty     float64 `mapstructure:"medium_uncertainty"`
	LowUncertainty        float64 `mapstructure:"low_uncertainty"`
}

// FreshnessConfig sets the staleness windows used by the normalizer.
type FreshnessConfig struct {
	PriceSensitiveWindow string `mapstructure:"price_sensitive_window"`
	FundamentalsWindow   string `mapstructure:"fundamentals_window"`
}

// UniverseConfig lists the tickers the trained forecast models cover.
type UniverseConfig struct {
	Tickers []string `mapstructure:"tickers"`
}

type WatchlistConfig struct {
	Tickers         string `mapstructure:"tickers"`
	RefreshSchedule string `mapstructure:"refresh_schedule"`
}

type TelegramConfig struct {
	BotToken   string `mapstructure:"bot_token"`
	WebhookURL string `mapstructure:"webhook_url"`
	AlertChat  int64  `mapstructure:"alert_chat_id"`
}

type CleanupConfig struct {
	HistoryRetentionDays   int    `mapstructure:"history_retention_days"`
	CleanupIntervalMinutes int    `mapstructure:"cleanup_interval_minutes"`
	Schedule               string `mapstructure:"schedule"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
	JWTExpiry  string `mapstructure:"jwt_expiry"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

// TelemetryConfig configures OpenTelemetry trace and log export. An empty
// endpoint falls back to stdout trace export in development.
type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	Release          string  `mapstructure:"release"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind specific environment variables
	if err := viper.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	environment := strings.ToLower(config.Environment)

	// Validate JWT secret in non-development environments
	if environment != "development" && config.Security.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required in non-development environments")
	}

	// Validate JWT expiry duration
	if config.Security.JWTExpiry != "" {
		if _, err := time.ParseDuration(config.Security.JWTExpiry); err != nil {
			return nil, fmt.Errorf("invalid JWT expiry duration: %w", err)
		}
	}

	// Validate bcrypt cost parameter
	if config.Security.BcryptCost < bcrypt.MinCost || config.Security.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, config.Security.BcryptCost)
	}

	if err := validateScoring(&config); err != nil {
		return nil, err
	}

	// Update config with normalized environment
	config.Environment = environment

	return &config, nil
}

func validateScoring(config *Config) error {
	if p := config.Ensemble.DisagreementPenalty; p <= 0 || p > 1 {
		return fmt.Errorf("ensemble disagreement penalty must be in (0,1], got %v", p)
	}
	total := config.Risk.LeverageWeight + config.Risk.LiquidityWeight + config.Risk.EarningsWeight
	if total <= 0 {
		return errors.New("risk component weights must sum to a positive value")
	}
	for name, v := range map[string]float64{
		"critical_contradiction": config.Confidence.CriticalContradiction,
		"warning_contradiction":  config.Confidence.WarningContradiction,
		"note_contradiction":     config.Confidence.NoteContradiction,
		"high_uncertainty":       config.Confidence.HighUncertainty,
		"medium_uncertainty":     config.Confidence.MediumUncertainty,
		"low_uncertainty":        config.Confidence.LowUncertainty,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("confidence penalty %s must be in [0,1], got %v", name, v)
		}
	}
	return nil
}

// PriceWindow returns the parsed price-sensitive freshness window.
func (f FreshnessConfig) PriceWindow() time.Duration {
	return parseDurationOr(f.PriceSensitiveWindow, 24*time.Hour)
}

// FundamentalsDuration returns the parsed fundamentals freshness window.
func (f FreshnessConfig) FundamentalsDuration() time.Duration {
	return parseDurationOr(f.FundamentalsWindow, 90*24*time.Hour)
}

// TTLFor returns the cache TTL for an analysis type.
func (c CacheConfig) TTLFor(analysisType string) time.Duration {
	switch analysisType {
	case "forecast":
		return parseDurationOr(c.ForecastTTL, 300*time.Second)
	case "fundamentals":
		return parseDurationOr(c.FundamentalsTTL, 600*time.Second)
	case "risk":
		return parseDurationOr(c.RiskTTL, 600*time.Second)
	case "scenario":
		return parseDurationOr(c.ScenarioTTL, 300*time.Second)
	default:
		return parseDurationOr(c.FullTTL, 180*time.Second)
	}
}

// WatchlistTickers splits the configured comma-separated watchlist.
func (w WatchlistConfig) WatchlistTickers() []string {
	if w.Tickers == "" {
		return nil
	}
	parts := strings.Split(w.Tickers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Set database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "equilens_ai")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "300s")
	viper.SetDefault("database.conn_max_idle_time", "60s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Market-data sidecar
	viper.SetDefault("data_service.service_url", "http://localhost:3001")
	viper.SetDefault("data_service.timeout", 30)

	// Result cache TTLs per analysis type
	viper.SetDefault("cache.forecast_ttl", "300s")
	viper.SetDefault("cache.fundamentals_ttl", "600s")
	viper.SetDefault("cache.risk_ttl", "600s")
	viper.SetDefault("cache.scenario_ttl", "300s")
	viper.SetDefault("cache.full_ttl", "180s")

	// Forecast ensemble
	viper.SetDefault("ensemble.disagreement_penalty", 0.85)
	viper.SetDefault("ensemble.high_confidence_level", 0.75)

	// Risk aggregation
	viper.SetDefault("risk.leverage_weight", 1.0/3.0)
	viper.SetDefault("risk.liquidity_weight", 1.0/3.0)
	viper.SetDefault("risk.earnings_weight", 1.0/3.0)
	viper.SetDefault("risk.boundary_margin", 5.0)

	// Confidence penalty table
	viper.SetDefault("confidence.critical_contradiction", 0.20)
	viper.SetDefault("confidence.warning_contradiction", 0.10)
	viper.SetDefault("confidence.note_contradiction", 0.03)
	viper.SetDefault("confidence.high_uncertainty", 0.12)
	viper.SetDefault("confidence.medium_uncertainty", 0.05)
	viper.SetDefault("confidence.low_uncertainty", 0.01)

	// Signal freshness windows
	viper.SetDefault("freshness.price_sensitive_window", "24h")
	viper.SetDefault("freshness.fundamentals_window", "2160h")

	// Forecast model universe
	viper.SetDefault("universe.tickers", []string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA",
		"JPM", "V", "JNJ", "WMT", "PG", "XOM", "UNH", "HD",
	})

	// Watchlist refresh
	viper.SetDefault("watchlist.tickers", "")
	viper.SetDefault("watchlist.refresh_schedule", "*/15 * * * *")

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.webhook_url", "")
	viper.SetDefault("telegram.alert_chat_id", 0)

	// Cleanup
	viper.SetDefault("cleanup.history_retention_days", 30)
	viper.SetDefault("cleanup.cleanup_interval_minutes", 60)
	viper.SetDefault("cleanup.schedule", "0 * * * *")

	// Rate limiting
	viper.SetDefault("rate_limit.requests_per_second", 10.0)
	viper.SetDefault("rate_limit.burst", 20)

	// Security
	viper.SetDefault("security.jwt_secret", "")
	viper.SetDefault("security.jwt_expiry", "24h")
	viper.SetDefault("security.bcrypt_cost", 12)

	// OpenTelemetry export
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.otlp_endpoint", "")
	viper.SetDefault("telemetry.sample_rate", 1.0)

	// Error tracking
	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "")
	viper.SetDefault("sentry.release", "")
	viper.SetDefault("sentry.traces_sample_rate", 0.2)
}
