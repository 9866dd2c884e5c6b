package marketdata

import (
	"time"

	"github.com/quantfold/equilens-ai-go/internal/models"
)

// HealthResponse is the data sidecar's health report.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ErrorResponse is the sidecar's error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FundamentalsResponse wraps one ticker's fundamental snapshot.
type FundamentalsResponse struct {
	Ticker       string                      `json:"ticker"`
	Fundamentals *models.FundamentalSnapshot `json:"fundamentals"`
	Timestamp    time.Time                   `json:"timestamp"`
}

// ForecastResponse carries the trained models' raw outputs for a ticker.
// InUniverse is false when no model covers the ticker, in which case
// ModelOutputs is empty.
type ForecastResponse struct {
	Ticker       string                 `json:"ticker"`
	InUniverse   bool                   `json:"in_universe"`
	ModelOutputs []models.ModelForecast `json:"model_outputs"`
	Timestamp    time.Time              `json:"timestamp"`
}

// PeersResponse lists the comparable companies' headline ratios.
type PeersResponse struct {
	Ticker    string               `json:"ticker"`
	Peers     []models.PeerCompany `json:"peers"`
	Count     int                  `json:"count"`
	Timestamp time.Time            `json:"timestamp"`
}

// PriceHistoryResponse carries a ticker's recent OHLCV bars.
type PriceHistoryResponse struct {
	Ticker    string            `json:"ticker"`
	Bars      []models.PriceBar `json:"bars"`
	Count     int               `json:"count"`
	Timestamp time.Time         `json:"timestamp"`
}
