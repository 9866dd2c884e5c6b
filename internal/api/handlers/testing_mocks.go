package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/quantfold/equilens-ai-go/internal/models"
	"github.com/quantfold/equilens-ai-go/pkg/interfaces"
)

// MockAnalysisAPI is a testify mock of the analysis service surface.
type MockAnalysisAPI struct {
	mock.Mock
}

func (m *MockAnalysisAPI) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalysisResult), args.Error(1)
}

func (m *MockAnalysisAPI) NormalizedSignals(ctx context.Context, ticker string) (*models.SignalSet, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SignalSet), args.Error(1)
}

func (m *MockAnalysisAPI) GetStored(ctx context.Context, id string) (*interfaces.StoredAnalysis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.StoredAnalysis), args.Error(1)
}

func (m *MockAnalysisAPI) History(ctx context.Context, ticker string, limit int) ([]interfaces.StoredAnalysis, error) {
	args := m.Called(ctx, ticker, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.StoredAnalysis), args.Error(1)
}

func (m *MockAnalysisAPI) InvalidateTicker(ctx context.Context, ticker string) (int64, error) {
	args := m.Called(ctx, ticker)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnalysisAPI) CacheStats() interfaces.CacheStats {
	args := m.Called()
	return args.Get(0).(interfaces.CacheStats)
}

// MockPinger is a testify mock of a backend liveness check.
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockProviderChecker is a testify mock of the sidecar liveness check.
type MockProviderChecker struct {
	mock.Mock
}

func (m *MockProviderChecker) IsHealthy(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

// MockCleanupRunner is a testify mock of the maintenance trigger.
type MockCleanupRunner struct {
	mock.Mock
}

func (m *MockCleanupRunner) RunCleanup(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
