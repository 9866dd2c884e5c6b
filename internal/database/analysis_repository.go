package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quantfold/equilens-ai-go/internal/models"
	"github.com/quantfold/equilens-ai-go/pkg/interfaces"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// AnalysisRepository stores reconciled result envelopes in the analyses
// table. The full envelope is kept as JSONB; ticker, type, confidence and
// overall risk are lifted into columns for querying.
type AnalysisRepository struct {
	pool DatabasePool
}

// NewAnalysisRepository creates a new analysis history repository.
func NewAnalysisRepository(pool DatabasePool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

// Save persists one result envelope.
func (r *AnalysisRepository) Save(ctx context.Context, result *models.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	query := `
		INSERT INTO analyses (id, ticker, analysis_type, confidence, overall_risk, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query,
		result.ID,
		strings.ToUpper(result.Ticker),
		string(result.AnalysisType),
		result.Confidence,
		string(result.Risk.OverallRisk),
		payload,
		result.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	return nil
}

// GetByID retrieves one stored envelope.
func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*interfaces.StoredAnalysis, error) {
	query := `
		SELECT id, ticker, analysis_type, confidence, overall_risk, result, created_at
		FROM analyses
		WHERE id = $1
	`

	stored, err := scanStoredAnalysis(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("failed to get analysis %s: %w", id, err)
	}

	return stored, nil
}

// ListByTicker returns a ticker's stored envelopes, newest first.
func (r *AnalysisRepository) ListByTicker(ctx context.Context, ticker string, limit int) ([]interfaces.StoredAnalysis, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, ticker, analysis_type, confidence, overall_risk, result, created_at
		FROM analyses
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, strings.ToUpper(ticker), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses for %s: %w", ticker, err)
	}
	defer rows.Close()

	var entries []interfaces.StoredAnalysis
	for rows.Next() {
		stored, err := scanStoredAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		entries = append(entries, *stored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis rows: %w", err)
	}

	return entries, nil
}

// PruneOlderThan deletes envelopes created before the cutoff and returns the
// count removed.
func (r *AnalysisRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM analyses WHERE created_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune analyses: %w", err)
	}

	return result.RowsAffected(), nil
}

func scanStoredAnalysis(row pgx.Row) (*interfaces.StoredAnalysis, error) {
	var stored interfaces.StoredAnalysis
	var analysisType, overallRisk string
	var payload []byte

	err := row.Scan(
		&stored.ID,
		&stored.Ticker,
		&analysisType,
		&stored.Confidence,
		&overallRisk,
		&payload,
		&stored.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	stored.AnalysisType = models.AnalysisType(analysisType)
	stored.OverallRisk = models.RiskLevel(overallRisk)
	if err := json.Unmarshal(payload, &stored.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored result: %w", err)
	}

	return &stored, nil
}

var _ interfaces.AnalysisRepository = (*AnalysisRepository)(nil)
