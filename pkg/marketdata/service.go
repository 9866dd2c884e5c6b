package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

// Service wraps the sidecar client with health tracking and a circuit
// breaker, and assembles the per-query input bundle the analysis pipeline
// consumes. Individual fetch failures degrade the bundle (nil section)
// instead of failing the query; only a fully-empty bundle is an error.
type Service struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker

	mu      sync.RWMutex
	healthy bool
}

// NewService creates a market-data service instance.
func NewService(cfg *config.DataServiceConfig) *Service {
	return &Service{
		client: NewClient(cfg),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "market-data",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Initialize verifies the sidecar is reachable.
func (s *Service) Initialize(ctx context.Context) error {
	health, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("market-data service health check failed: %w", err)
	}
	if health.Status != "ok" && health.Status != "healthy" {
		return fmt.Errorf("market-data service unhealthy: %s", health.Status)
	}

	s.mu.Lock()
	s.healthy = true
	s.mu.Unlock()
	return nil
}

// IsHealthy reports the last observed health state, refreshed by a cheap
// health probe.
func (s *Service) IsHealthy(ctx context.Context) bool {
	_, err := s.client.HealthCheck(ctx)
	s.mu.Lock()
	s.healthy = err == nil
	healthy := s.healthy
	s.mu.Unlock()
	return healthy
}

// GetServiceURL returns the configured sidecar URL.
func (s *Service) GetServiceURL() string {
	return s.client.BaseURL
}

// FetchFundamentals retrieves a ticker's fundamental snapshot through the
// breaker.
func (s *Service) FetchFundamentals(ctx context.Context, ticker string) (*models.FundamentalSnapshot, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.GetFundamentals(ctx, ticker)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fundamentals for %s: %w", ticker, err)
	}
	return result.(*FundamentalsResponse).Fundamentals, nil
}

// FetchForecast retrieves the trained models' outputs. The returned flag is
// false when the ticker is outside every model's trained universe.
func (s *Service) FetchForecast(ctx context.Context, ticker string) ([]models.ModelForecast, bool, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.GetForecast(ctx, ticker)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch forecast for %s: %w", ticker, err)
	}
	resp := result.(*ForecastResponse)
	return resp.ModelOutputs, resp.InUniverse, nil
}

// FetchPeers retrieves the peer group's headline ratios.
func (s *Service) FetchPeers(ctx context.Context, ticker string, peers []string) ([]models.PeerCompany, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.GetPeers(ctx, ticker, peers)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch peers for %s: %w", ticker, err)
	}
	return result.(*PeersResponse).Peers, nil
}

// FetchPriceHistory retrieves recent OHLCV bars.
func (s *Service) FetchPriceHistory(ctx context.Context, ticker string, limit int) ([]models.PriceBar, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.GetPriceHistory(ctx, ticker, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price history for %s: %w", ticker, err)
	}
	return result.(*PriceHistoryResponse).Bars, nil
}

// FetchAnalysisInputs assembles the full input bundle for one query. Each
// section is fetched independently; a failed section is left nil so the
// pipeline records it as missing rather than failing the query. An error is
// returned only when every section failed.
func (s *Service) FetchAnalysisInputs(ctx context.Context, ticker string, peers []string) (*models.AnalysisInputs, error) {
	inputs := &models.AnalysisInputs{
		Ticker:      ticker,
		RetrievedAt: time.Now().UTC(),
	}

	var fetched int

	if fundamentals, err := s.FetchFundamentals(ctx, ticker); err == nil {
		inputs.Fundamentals = fundamentals
		fetched++
	}

	if outputs, inUniverse, err := s.FetchForecast(ctx, ticker); err == nil {
		inputs.ModelOutputs = outputs
		inputs.InUniverse = inUniverse
		fetched++
	}

	if peerData, err := s.FetchPeers(ctx, ticker, peers); err == nil {
		inputs.Peers = peerData
		fetched++
	}

	if bars, err := s.FetchPriceHistory(ctx, ticker, 60); err == nil {
		inputs.PriceHistory = bars
		fetched++
	}

	if fetched == 0 {
		return nil, fmt.Errorf("no data available for %s: all sources failed", ticker)
	}
	return inputs, nil
}

// BreakerState exposes the circuit breaker state for health reporting.
func (s *Service) BreakerState() string {
	return s.breaker.State().String()
}

// Close releases the underlying client.
func (s *Service) Close() error {
	return s.client.Close()
}
