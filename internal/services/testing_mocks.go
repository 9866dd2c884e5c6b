package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/quantfold/equilens-ai-go/internal/models"
	"github.com/quantfold/equilens-ai-go/pkg/interfaces"
)

// MockDataProvider implements marketdata.DataProvider for testing within the
// services package.
type MockDataProvider struct {
	mock.Mock
}

func (m *MockDataProvider) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDataProvider) IsHealthy(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockDataProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataProvider) GetServiceURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockDataProvider) FetchFundamentals(ctx context.Context, ticker string) (*models.FundamentalSnapshot, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FundamentalSnapshot), args.Error(1)
}

func (m *MockDataProvider) FetchForecast(ctx context.Context, ticker string) ([]models.ModelForecast, bool, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.ModelForecast), args.Bool(1), args.Error(2)
}

func (m *MockDataProvider) FetchPeers(ctx context.Context, ticker string, peers []string) ([]models.PeerCompany, error) {
	args := m.Called(ctx, ticker, peers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PeerCompany), args.Error(1)
}

func (m *MockDataProvider) FetchPriceHistory(ctx context.Context, ticker string, limit int) ([]models.PriceBar, error) {
	args := m.Called(ctx, ticker, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PriceBar), args.Error(1)
}

func (m *MockDataProvider) FetchAnalysisInputs(ctx context.Context, ticker string, peers []string) (*models.AnalysisInputs, error) {
	args := m.Called(ctx, ticker, peers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalysisInputs), args.Error(1)
}

// MockAnalysisRepository implements interfaces.AnalysisRepository for
// testing persistence paths without a database.
type MockAnalysisRepository struct {
	mock.Mock
}

func (m *MockAnalysisRepository) Save(ctx context.Context, result *models.AnalysisResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockAnalysisRepository) GetByID(ctx context.Context, id string) (*interfaces.StoredAnalysis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.StoredAnalysis), args.Error(1)
}

func (m *MockAnalysisRepository) ListByTicker(ctx context.Context, ticker string, limit int) ([]interfaces.StoredAnalysis, error) {
	args := m.Called(ctx, ticker, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.StoredAnalysis), args.Error(1)
}

func (m *MockAnalysisRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockAlerter implements Alerter for testing the notification path.
type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) AlertCriticalContradictions(ctx context.Context, result *models.AnalysisResult) {
	m.Called(ctx, result)
}
