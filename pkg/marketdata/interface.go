package marketdata

import (
	"context"

	"github.com/quantfold/equilens-ai-go/internal/models"
)

// DataProvider defines the interface for fetching analysis inputs from the
// market-data sidecar.
type DataProvider interface {
	// Service lifecycle
	Initialize(ctx context.Context) error
	IsHealthy(ctx context.Context) bool
	Close() error
	GetServiceURL() string

	// Per-section fetches
	FetchFundamentals(ctx context.Context, ticker string) (*models.FundamentalSnapshot, error)
	FetchForecast(ctx context.Context, ticker string) ([]models.ModelForecast, bool, error)
	FetchPeers(ctx context.Context, ticker string, peers []string) ([]models.PeerCompany, error)
	FetchPriceHistory(ctx context.Context, ticker string, limit int) ([]models.PriceBar, error)

	// Bundle assembly for one analysis query
	FetchAnalysisInputs(ctx context.Context, ticker string, peers []string) (*models.AnalysisInputs, error)
}

// DataClient defines the interface for low-level sidecar HTTP operations.
type DataClient interface {
	HealthCheck(ctx context.Context) (*HealthResponse, error)
	GetFundamentals(ctx context.Context, ticker string) (*FundamentalsResponse, error)
	GetForecast(ctx context.Context, ticker string) (*ForecastResponse, error)
	GetPeers(ctx context.Context, ticker string, peers []string) (*PeersResponse, error)
	GetPriceHistory(ctx context.Context, ticker string, limit int) (*PriceHistoryResponse, error)
	Close() error
}

// Ensure our implementations satisfy the interfaces
var (
	_ DataProvider = (*Service)(nil)
	_ DataClient   = (*Client)(nil)
)
