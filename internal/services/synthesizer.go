package services

import (
	"github.com/quantfold/equilens-ai-go/internal/models"
)

// Synthesized-view constants.
const (
	outlookPositiveConfidence = 0.65
	outlookTemperConfidence   = 0.50
	maxSynthesizedHiddenRisks = 3
)

// SynthesizeOutlook maps the reconciled forecast, risk and confidence onto a
// single outlook label. Deterministic; no free text.
func SynthesizeOutlook(forecast *models.ForecastResult, risk *models.RiskAssessment, confidence float64) string {
	elevated := risk != nil && risk.OverallRisk.AtLeast(models.RiskHigh)

	if forecast == nil || !forecast.Available() {
		if elevated {
			return models.OutlookCautious
		}
		return models.OutlookNeutral
	}

	switch forecast.Direction {
	case models.DirectionUpward:
		if elevated || confidence < outlookTemperConfidence {
			return models.OutlookModeratelyPositive
		}
		if confidence >= outlookPositiveConfidence {
			return models.OutlookPositive
		}
		return models.OutlookModeratelyPositive
	case models.DirectionDownward:
		if elevated {
			return models.OutlookNegative
		}
		return models.OutlookCautious
	default:
		if elevated {
			return models.OutlookCautious
		}
		return models.OutlookNeutral
	}
}

// BuildKeyMetrics lifts the headline figures out of the snapshot. Nil when
// no fundamentals were retrieved.
func BuildKeyMetrics(f *models.FundamentalSnapshot) *models.KeyMetrics {
	if f == nil {
		return nil
	}

	metrics := &models.KeyMetrics{
		Price:            f.Price,
		MarketCap:        f.MarketCap,
		PERatio:          f.PERatio,
		RevenueGrowthPct: f.RevenueGrowthPct,
		NetMarginPct:     f.NetMarginPct,
		Beta:             f.Beta,
	}
	if de, ok := f.DebtToEquityRatio(); ok {
		metrics.DebtToEquity = &de
	}
	if current, ok := f.CurrentRatio(); ok {
		metrics.CurrentRatio = &current
	}
	return metrics
}

// CapHiddenRisks limits the synthesized view to the leading hidden risks,
// preserving detection order.
func CapHiddenRisks(risks []string) []string {
	if len(risks) <= maxSynthesizedHiddenRisks {
		return risks
	}
	return risks[:maxSynthesizedHiddenRisks]
}
