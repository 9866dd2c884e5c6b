package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

// Raw-signal thresholds for the fundamental tension rules.
const (
	bullishProbUp        = 0.60
	tensionNetMarginPct  = 5.0
	tensionRevenueGrowth = 15.0
	tensionDebtToEquity  = 2.0
	tensionFCFCoverage   = 0.50
	tensionPERatio       = 30.0
	tensionGrowthFloor   = 5.0
)

// DetectionContext bundles the reconciled views a detection pass inspects.
// Rules read it but never mutate it.
type DetectionContext struct {
	Ticker   string
	Signals  *models.SignalSet
	Forecast *models.ForecastResult
	Risk     *models.RiskAssessment
	Peers    *models.PeerReport
	Earnings *models.EarningsStabilityReport
}

// contradictionRule is one ordered check: a predicate plus a builder for the
// emitted record. Each rule fires at most once per query.
type contradictionRule struct {
	ruleType string
	severity models.ContradictionSeverity
	signalA  string
	signalB  string
	applies  func(*DetectionContext) bool
	message  func(*DetectionContext) string
}

// ContradictionDetector runs the ordered rule list over one query's
// reconciled views. Output order is detection order.
type ContradictionDetector struct {
	highConfidence float64
	rules          []contradictionRule
	logger         *logrus.Logger
}

// NewContradictionDetector creates a detector. The high-confidence level
// gates the confidence-versus-model-split rule.
func NewContradictionDetector(cfg config.EnsembleConfig, logger *logrus.Logger) *ContradictionDetector {
	level := cfg.HighConfidenceLevel
	if level <= 0 || level >= 1 {
		level = 0.75
	}
	d := &ContradictionDetector{highConfidence: level, logger: logger}
	d.rules = d.buildRules()
	return d
}

// Detect evaluates every rule against the context.
func (cd *ContradictionDetector) Detect(ctx *DetectionContext) []models.Contradiction {
	contradictions := []models.Contradiction{}
	for _, rule := range cd.rules {
		if !rule.applies(ctx) {
			continue
		}
		contradictions = append(contradictions, models.Contradiction{
			Type:     rule.ruleType,
			Severity: rule.severity,
			SignalA:  rule.signalA,
			SignalB:  rule.signalB,
			Message:  rule.message(ctx),
		})
	}

	if len(contradictions) > 0 {
		cd.logger.WithFields(logrus.Fields{
			"ticker": ctx.Ticker,
			"count":  len(contradictions),
		}).Info("contradictions detected")
	}

	return contradictions
}

func (cd *ContradictionDetector) buildRules() []contradictionRule {
	return []contradictionRule{
		{
			ruleType: models.ContradictionForecastRiskTension,
			severity: models.SeverityWarning,
			signalA:  "forecast_direction",
			signalB:  "overall_risk",
			applies: func(c *DetectionContext) bool {
				if c.Forecast == nil || c.Forecast.Direction != models.DirectionUpward || c.Risk == nil {
					return false
				}
				return elevatedRisk(c.Risk)
			},
			message: func(c *DetectionContext) string {
				return fmt.Sprintf("%s: models forecast upward movement while fundamental risk is elevated (%s)", c.Ticker, riskHotspot(c.Risk))
			},
		},
		{
			ruleType: models.ContradictionForecastVsPeerStrength,
			severity: models.SeverityCritical,
			signalA:  "forecast_direction",
			signalB:  "peer_positioning",
			applies: func(c *DetectionContext) bool {
				return c.Forecast != nil && c.Forecast.Direction == models.DirectionDownward &&
					c.Peers.StrongOutperformance()
			},
			message: func(c *DetectionContext) string {
				return fmt.Sprintf("%s: models forecast downward movement although the company is undervalued and more profitable than its %d peers", c.Ticker, c.Peers.PeerCount)
			},
		},
		{
			ruleType: models.ContradictionConfidenceVsModelSplit,
			severity: models.SeverityCritical,
			signalA:  "model_agreement",
			signalB:  "forecast_confidence",
			applies: func(c *DetectionContext) bool {
				return c.Forecast != nil && c.Forecast.Available() &&
					!c.Forecast.ModelAgreement && c.Forecast.ConfidenceValue() > cd.highConfidence
			},
			message: func(c *DetectionContext) string {
				return fmt.Sprintf("%s: reported confidence %.2f despite the models disagreeing on direction", c.Ticker, c.Forecast.ConfidenceValue())
			},
		},
		{
			ruleType: models.ContradictionEarningsVsOutlook,
			severity: models.SeverityNote,
			signalA:  "earnings_stability",
			signalB:  "forecast_direction",
			applies: func(c *DetectionContext) bool {
				if c.Earnings == nil || c.Forecast == nil {
					return false
				}
				volatile := c.Earnings.Classification == models.EarningsHighlyVolatile ||
					c.Earnings.Classification == models.EarningsModeratelyVolatile
				return volatile && c.Forecast.Direction == models.DirectionUpward
			},
			message: func(c *DetectionContext) string {
				return fmt.Sprintf("%s: positive outlook drawn from a %s earnings base", c.Ticker, c.Earnings.Classification)
			},
		},
		{
			ruleType: models.ContradictionForecastVsFundamentals,
			severity: models.SeverityWarning,
			signalA:  models.FieldForecastProbUp,
			signalB:  models.FieldNetMargin,
			applies: func(c *DetectionContext) bool {
				probUp, okProb := c.Signals.Float(models.FieldForecastProbUp)
				margin, okMargin := c.Signals.Float(models.FieldNetMargin)
				return okProb && okMargin && probUp > bullishProbUp && margin < tensionNetMarginPct
			},
			message: func(c *DetectionContext) string {
				probUp, _ := c.Signals.Float(models.FieldForecastProbUp)
				margin, _ := c.Signals.Float(models.FieldNetMargin)
				return fmt.Sprintf("%s: bullish forecast (%.0f%% up) against a thin %.1f%% net margin", c.Ticker, probUp*100, margin)
			},
		},
		{
			ruleType: models.ContradictionGrowthVsLeverage,
			severity: models.SeverityWarning,
			signalA:  models.FieldRevenueGrowth,
			signalB:  models.FieldDebtToEquity,
			applies: func(c *DetectionContext) bool {
				growth, okGrowth := c.Signals.Float(models.FieldRevenueGrowth)
				de, okDE := c.Signals.Float(models.FieldDebtToEquity)
				return okGrowth && okDE && growth > tensionRevenueGrowth && de > tensionDebtToEquity
			},
			message: func(c *DetectionContext) string {
				growth, _ := c.Signals.Float(models.FieldRevenueGrowth)
				de, _ := c.Signals.Float(models.FieldDebtToEquity)
				return fmt.Sprintf("%s: %.1f%% revenue growth is financed at %.1fx debt-to-equity", c.Ticker, growth, de)
			},
		},
		{
			ruleType: models.ContradictionProfitabilityVsCashflow,
			severity: models.SeverityCritical,
			signalA:  models.FieldNetIncome,
			signalB:  models.FieldFreeCashFlow,
			applies: func(c *DetectionContext) bool {
				netIncome, okNI := c.Signals.Float(models.FieldNetIncome)
				fcf, okFCF := c.Signals.Float(models.FieldFreeCashFlow)
				return okNI && okFCF && netIncome > 0 && fcf < netIncome*tensionFCFCoverage
			},
			message: func(c *DetectionContext) string {
				netIncome, _ := c.Signals.Float(models.FieldNetIncome)
				fcf, _ := c.Signals.Float(models.FieldFreeCashFlow)
				return fmt.Sprintf("%s: free cash flow covers only %.0f%% of reported net income", c.Ticker, safeRatioPct(fcf, netIncome))
			},
		},
		{
			ruleType: models.ContradictionValuationVsGrowth,
			severity: models.SeverityWarning,
			signalA:  models.FieldPERatio,
			signalB:  models.FieldRevenueGrowth,
			applies: func(c *DetectionContext) bool {
				pe, okPE := c.Signals.Float(models.FieldPERatio)
				growth, okGrowth := c.Signals.Float(models.FieldRevenueGrowth)
				return okPE && okGrowth && pe > tensionPERatio && growth < tensionGrowthFloor
			},
			message: func(c *DetectionContext) string {
				pe, _ := c.Signals.Float(models.FieldPERatio)
				growth, _ := c.Signals.Float(models.FieldRevenueGrowth)
				return fmt.Sprintf("%s: P/E of %.1f priced against only %.1f%% revenue growth", c.Ticker, pe, growth)
			},
		},
	}
}

// elevatedRisk is true when the overall bucket or any sub-level reads high
// or worse. A single high component is enough tension against a bullish
// call even when dilution keeps the overall bucket moderate.
func elevatedRisk(r *models.RiskAssessment) bool {
	return r.OverallRisk.AtLeast(models.RiskHigh) ||
		r.LeverageRisk.AtLeast(models.RiskHigh) ||
		r.LiquidityRisk.AtLeast(models.RiskHigh) ||
		r.EarningsStability.AtLeast(models.RiskHigh)
}

// riskHotspot names the most severe dimension for the rule message.
func riskHotspot(r *models.RiskAssessment) string {
	if r.OverallRisk.AtLeast(models.RiskHigh) {
		return fmt.Sprintf("overall %s", r.OverallRisk)
	}
	switch {
	case r.LeverageRisk.AtLeast(models.RiskHigh):
		return fmt.Sprintf("leverage %s", r.LeverageRisk)
	case r.LiquidityRisk.AtLeast(models.RiskHigh):
		return fmt.Sprintf("liquidity %s", r.LiquidityRisk)
	default:
		return fmt.Sprintf("earnings stability %s", r.EarningsStability)
	}
}

func safeRatioPct(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator * 100
}
