package interfaces

import (
	"context"
	"time"

	"github.com/quantfold/equilens-ai-go/internal/models"
)

// StoredAnalysis is one persisted result envelope with its storage metadata.
type StoredAnalysis struct {
	ID           string                `json:"id"`
	Ticker       string                `json:"ticker"`
	AnalysisType models.AnalysisType   `json:"analysis_type"`
	Confidence   float64               `json:"confidence"`
	OverallRisk  models.RiskLevel      `json:"overall_risk"`
	Result       models.AnalysisResult `json:"result"`
	CreatedAt    time.Time             `json:"created_at"`
}

// AnalysisRepository defines the contract for the analysis history store.
// This allows for dependency injection and testing with mock implementations.
type AnalysisRepository interface {
	Save(ctx context.Context, result *models.AnalysisResult) error
	GetByID(ctx context.Context, id string) (*StoredAnalysis, error)
	ListByTicker(ctx context.Context, ticker string, limit int) ([]StoredAnalysis, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
