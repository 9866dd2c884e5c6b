package services

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

func newTestDetector() *ContradictionDetector {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewContradictionDetector(config.EnsembleConfig{
		DisagreementPenalty: 0.85,
		HighConfidenceLevel: 0.75,
	}, logger)
}

func testSignalTime() time.Time {
	return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
}

func emptyContext(ticker string) *DetectionContext {
	return &DetectionContext{
		Ticker:  ticker,
		Signals: models.NewSignalSet(),
		Peers:   &models.PeerReport{},
	}
}

func TestContradictionDetector_NoViews_NoFindings(t *testing.T) {
	cd := newTestDetector()

	contradictions := cd.Detect(emptyContext("AAPL"))

	assert.Empty(t, contradictions)
	assert.NotNil(t, contradictions)
}

func TestContradictionDetector_ForecastRiskTension_OverallHigh(t *testing.T) {
	cd := newTestDetector()
	ctx := emptyContext("AAPL")
	ctx.Forecast = &models.ForecastResult{Direction: models.DirectionUpward, ModelAgreement: true}
	ctx.Risk = &models.RiskAssessment{
		OverallRisk:       models.RiskHigh,
		LeverageRisk:      models.RiskHigh,
		LiquidityRisk:     models.RiskHigh,
		EarningsStability: models.RiskModerate,
	}

	contradictions := cd.Detect(ctx)

	require.Len(t, contradictions, 1)
	assert.Equal(t, models.ContradictionForecastRiskTension, contradictions[0].Type)
	assert.Equal(t, models.SeverityWarning, contradictions[0].Severity)
	assert.Contains(t, contradictions[0].Message, "AAPL")
}

func TestContradictionDetector_ForecastRiskTension_SubLevelHighDespiteModerateOverall(t *testing.T) {
	cd := newTestDetector()
	ctx := emptyContext("AAPL")
	ctx.Forecast = &models.ForecastResult{Direction: models.DirectionUpward, ModelAgreement: true}
	// leverage=high, liquidity=low, earnings=stable: (70+10+10)/3 = 30.
	ctx.Risk = &models.RiskAssessment{
		OverallRisk:       models.RiskModerate,
		OverallRiskScore:  30,
		LeverageRisk:      models.RiskHigh,
		LiquidityRisk:     models.RiskLow,
		EarningsStability: models.RiskLow,
	}

	contradictions := cd.Detect(ctx)

	require.Len(t, contradictions, 1)
	assert.Equal(t, models.ContradictionForecastRiskTension, contradictions[0].Type)
	assert.Equal(t, models.SeverityWarning, contradictions[0].Severity)
	assert.Contains(t, contradictions[0].Message, "leverage")
}

func TestContradictionDetector_NoTensionWhenRiskBenign(t *testing.T) {
	cd := newTestDetector()
	ctx := emptyContext("AAPL")
	ctx.Forecast = &models.ForecastResult{Direction: models.DirectionUpward, ModelAgreement: true}
	ctx.Risk = &models.RiskAssessment{
		OverallRisk:       models.RiskModerate,
		LeverageRisk:      models.RiskModerate,
		LiquidityRisk:     models.RiskLow,
		EarningsStability: models.RiskLow,
	}

	assert.Empty(t, cd.Detect(ctx))
}

func TestContradictionDetector_ForecastVsPeerStrength(t *testing.T) {
	cd := newTestDetector()
	ctx := emptyContext("MSFT")
	ctx.Forecast = &models.ForecastResult{Direction: models.DirectionDownward, ModelAgreement: true}
	ctx.Peers = &models.PeerReport{
		PeerCount:         4,
		ValuationPosition: models.PeerUndervalued,
		MarginPosition:    models.PeerAbove,
	}

	contradictions := cd.Detect(ctx)

	require.Len(t, contradictions, 1)
	assert.Equal(t, models.ContradictionForecastVsPeerStrength, contradictions[0].Type)
	assert.Equal(t, models.SeverityCritical, contradictions[0].Severity)
}

func TestContradictionDetector_ConfidenceVsModelSplit(t *testing.T) {
	cd := newTestDetector()
	confidence := 0.80
	ctx := emptyContext("NVDA")
	ctx.Forecast = &models.ForecastResult{
		Direction:      models.DirectionUpward,
		Confidence:     &confidence,
		ModelAgreement: false,
	}
	ctx.Risk = &models.RiskAssessment{
		OverallRisk:       models.RiskLow,
		LeverageRisk:      models.RiskLow,
		LiquidityRisk:     models.RiskLow,
		EarningsStability: models.RiskLow,
	}

	contradictions := cd.Detect(ctx)

	require.Len(t, contradictions, 1)
	assert.Equal(t, models.ContradictionConfidenceVsModelSplit, contradictions[0].Type)
	assert.Equal(t, models.SeverityCritical, contradictions[0].Severity)
}

func TestContradictionDetector_SplitBelowThresholdSilent(t *testing.T) {
	cd := newTestDetector()
	confidence := 0.70
	ctx := emptyContext("NVDA")
	ctx.Forecast = &models.ForecastResult{
		Direction:      models.DirectionUpward,
		Confidence:     &confidence,
		ModelAgreement: false,
	}

	assert.Empty(t, cd.Detect(ctx))
}

func TestContradictionDetector_EarningsVsOutlook(t *testing.T) {
	cd := newTestDetector()
	ctx := emptyContext("TSLA")
	ctx.Forecast = &models.ForecastResult{Direction: models.DirectionUpward, ModelAgreement: true}
	ctx.Earnings = &models.EarningsStabilityReport{
		Classification: models.EarningsModeratelyVolatile,
	}

	contradictions := cd.Detect(ctx)

	require.Len(t, contradictions, 1)
	assert.Equal(t, models.ContradictionEarningsVsOutlook, contradictions[0].Type)
	assert.Equal(t, models.SeverityNote, contradictions[0].Severity)
}

func TestContradictionDetector_ForecastVsFundamentals(t *testing.T) {
	cd := newTestDetector()
	ctx := emptyContext("WMT")
	ctx.Signals.Add(models.PresentSignal(models.FieldForecastProbUp, 0.7, models.SourceForecast, 0.8, testSignalTime()))
	ctx.Signals.Add(models.PresentSignal(models.FieldNetMargin, 2.5, models.SourceFundamentals, 0.9, testSignalTime()))

	contradictions := cd.Detect(ctx)

	require.Len(t, contradictions, 1)
	assert.Equal(t, models.ContradictionForecastVsFundamentals, contradictions[0].Type)
	assert.Contains(t, contradictions[0].Message, "70%")
}

func TestContradictionDetector_GrowthVsLeverage(t *testing.T) {
	cd := newTestDetector()
	ctx := emptyContext("AMZN")
	ctx.Signals.Add(models.PresentSignal(models.FieldRevenueGrowth, 22.0, models.SourceFundamentals, 0.9, testSignalTime()))
	ctx.Signals.Add(models.PresentSignal(models.FieldDebtToEquity, 2.8, models.SourceFundamentals, 0.9, testSignalTime()))

	contradictions := cd.Detect(ctx)

	require.Len(t, contradictions, 1)
	assert.Equal(t, models.ContradictionGrowthVsLeverage, contradictions[0].Type)
	assert.Equal(t, models.SeverityWarning, contradictions[0].Severity)
}

func TestContradictionDetector_ProfitabilityVsCashflow(t *testing.T) {
	cd := newTestDetector()
	ctx := emptyContext("XOM")
	ctx.Signals.Add(models.PresentSignal(models.FieldNetIncome, 1000.0, models.SourceFundamentals, 0.9, testSignalTime()))
	ctx.Signals.Add(models.PresentSignal(models.FieldFreeCashFlow, 300.0, models.SourceFundamentals, 0.9, testSignalTime()))

	contradictions := cd.Detect(ctx)

	require.Len(t, contradictions, 1)
	assert.Equal(t, models.ContradictionProfitabilityVsCashflow, contradictions[0].Type)
	assert.Equal(t, models.SeverityCritical, contradictions[0].Severity)
	assert.Contains(t, contradictions[0].Message, "30%")
}

func TestContradictionDetector_ValuationVsGrowth(t *testing.T) {
	cd := newTestDetector()
	ctx := emptyContext("KO")
	ctx.Signals.Add(models.PresentSignal(models.FieldPERatio, 38.0, models.SourceFundamentals, 0.9, testSignalTime()))
	ctx.Signals.Add(models.PresentSignal(models.FieldRevenueGrowth, 2.0, models.SourceFundamentals, 0.9, testSignalTime()))

	contradictions := cd.Detect(ctx)

	require.Len(t, contradictions, 1)
	assert.Equal(t, models.ContradictionValuationVsGrowth, contradictions[0].Type)
}

func TestContradictionDetector_MissingSignalsKeepRawRulesSilent(t *testing.T) {
	cd := newTestDetector()
	ctx := emptyContext("AAPL")
	ctx.Signals.Add(models.MissingSignal(models.FieldNetMargin, models.SourceFundamentals))
	ctx.Signals.Add(models.PresentSignal(models.FieldForecastProbUp, 0.9, models.SourceForecast, 0.9, testSignalTime()))

	assert.Empty(t, cd.Detect(ctx))
}

func TestContradictionDetector_DetectionOrderPreserved(t *testing.T) {
	cd := newTestDetector()
	ctx := emptyContext("META")
	ctx.Forecast = &models.ForecastResult{Direction: models.DirectionUpward, ModelAgreement: true}
	ctx.Risk = &models.RiskAssessment{
		OverallRisk:       models.RiskHigh,
		LeverageRisk:      models.RiskHigh,
		LiquidityRisk:     models.RiskModerate,
		EarningsStability: models.RiskModerate,
	}
	ctx.Signals.Add(models.PresentSignal(models.FieldPERatio, 40.0, models.SourceFundamentals, 0.9, testSignalTime()))
	ctx.Signals.Add(models.PresentSignal(models.FieldRevenueGrowth, 1.0, models.SourceFundamentals, 0.9, testSignalTime()))

	contradictions := cd.Detect(ctx)

	require.Len(t, contradictions, 2)
	assert.Equal(t, models.ContradictionForecastRiskTension, contradictions[0].Type)
	assert.Equal(t, models.ContradictionValuationVsGrowth, contradictions[1].Type)
}
