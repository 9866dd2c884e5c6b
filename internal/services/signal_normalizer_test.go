package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

func testFreshness() config.FreshnessConfig {
	return config.FreshnessConfig{
		PriceSensitiveWindow: "24h",
		FundamentalsWindow:   "2160h", // 90 days
	}
}

func newTestNormalizer() *SignalNormalizer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewSignalNormalizer(testFreshness(), logger)
}

func normalizerInputs(retrieved time.Time) *models.AnalysisInputs {
	marketCap := decimal.NewFromInt(2_000_000_000)
	return &models.AnalysisInputs{
		Ticker: "AAPL",
		Fundamentals: &models.FundamentalSnapshot{
			Ticker:       "AAPL",
			Price:        floatPtr(180.0),
			MarketCap:    &marketCap,
			PERatio:      floatPtr(28.0),
			NetMarginPct: floatPtr(24.0),
			TotalDebt:    decPtr(1100),
			TotalEquity:  decPtr(1000),
			AsOf:         retrieved.Add(-time.Hour),
		},
		ModelOutputs: []models.ModelForecast{
			{Model: models.ModelTFT, ProbUp: 0.7, ProbDown: 0.3, Confidence: 0.8},
			{Model: models.ModelXGBoost, ProbUp: 0.6, ProbDown: 0.4, Confidence: 0.6},
		},
		InUniverse:  true,
		RetrievedAt: retrieved,
	}
}

func TestSignalNormalizer_EmitsEveryCanonicalField(t *testing.T) {
	sn := newTestNormalizer()

	set := sn.Normalize(normalizerInputs(testSignalTime()), nil, nil)

	fields := []string{
		models.FieldPrice, models.FieldMarketCap, models.FieldPERatio,
		models.FieldRevenue, models.FieldRevenueGrowth, models.FieldNetIncome,
		models.FieldNetMargin, models.FieldFreeCashFlow, models.FieldTotalDebt,
		models.FieldDebtToEquity, models.FieldDebtToAssets, models.FieldCurrentRatio,
		models.FieldQuickRatio, models.FieldCashRatio, models.FieldInterestBurden,
		models.FieldBeta, models.FieldEarningsYears,
		models.FieldForecastProbUp, models.FieldForecastConf,
		models.FieldPeerValuation, models.FieldPeerMargin, models.FieldPeerLeverage,
		models.FieldEarningsStability, models.FieldEarningsCV, models.FieldEarningsTrend,
		models.FieldTrendDirection, models.FieldVolatilityRegime,
	}
	for _, field := range fields {
		_, ok := set.Get(field)
		assert.True(t, ok, "field %s not emitted", field)
	}
	assert.Equal(t, len(fields), set.Len())
}

func TestSignalNormalizer_AbsentValuesBecomeMissingNotZero(t *testing.T) {
	sn := newTestNormalizer()
	inputs := normalizerInputs(testSignalTime())
	inputs.Fundamentals.Price = nil
	inputs.Fundamentals.TotalDebt = nil

	set := sn.Normalize(inputs, nil, nil)

	assert.True(t, set.Missing(models.FieldPrice))
	assert.True(t, set.Missing(models.FieldTotalDebt))
	assert.True(t, set.Missing(models.FieldDebtToEquity))
	_, ok := set.Float(models.FieldPrice)
	assert.False(t, ok)
}

func TestSignalNormalizer_NilFundamentalsAllMissing(t *testing.T) {
	sn := newTestNormalizer()
	inputs := normalizerInputs(testSignalTime())
	inputs.Fundamentals = nil

	set := sn.Normalize(inputs, nil, nil)

	assert.True(t, set.Missing(models.FieldPrice))
	assert.True(t, set.Missing(models.FieldNetMargin))
	assert.True(t, set.Missing(models.FieldEarningsYears))
}

func TestSignalNormalizer_PresentSignalCarriesProvenance(t *testing.T) {
	sn := newTestNormalizer()

	set := sn.Normalize(normalizerInputs(testSignalTime()), nil, nil)

	sig, ok := set.Get(models.FieldPERatio)
	require.True(t, ok)
	assert.Equal(t, models.SourceFundamentals, sig.Source)
	assert.Equal(t, hintFundamentals, sig.ConfidenceHint)
	assert.False(t, sig.IsStale)
	assert.False(t, sig.IsMissing)
	require.NotNil(t, sig.AsOf)

	value, ok := set.Float(models.FieldPERatio)
	require.True(t, ok)
	assert.InDelta(t, 28.0, value, 1e-9)
}

func TestSignalNormalizer_StaleWindowsByFieldClass(t *testing.T) {
	sn := newTestNormalizer()
	retrieved := testSignalTime()
	inputs := normalizerInputs(retrieved)
	// 48h old: beyond the 24h price window, well inside 90 days.
	inputs.Fundamentals.AsOf = retrieved.Add(-48 * time.Hour)

	set := sn.Normalize(inputs, nil, nil)

	price, ok := set.Get(models.FieldPrice)
	require.True(t, ok)
	assert.True(t, price.IsStale)
	assert.False(t, price.IsMissing)

	pe, ok := set.Get(models.FieldPERatio)
	require.True(t, ok)
	assert.False(t, pe.IsStale)

	// Stale values remain usable.
	value, ok := set.Float(models.FieldPrice)
	require.True(t, ok)
	assert.InDelta(t, 180.0, value, 1e-9)
}

func TestSignalNormalizer_ForecastSignalsAverageModels(t *testing.T) {
	sn := newTestNormalizer()

	set := sn.Normalize(normalizerInputs(testSignalTime()), nil, nil)

	probUp, ok := set.Float(models.FieldForecastProbUp)
	require.True(t, ok)
	assert.InDelta(t, 0.65, probUp, 1e-9)

	conf, ok := set.Float(models.FieldForecastConf)
	require.True(t, ok)
	assert.InDelta(t, 0.70, conf, 1e-9)

	// Forecast signals carry the models' own confidence as the hint.
	sig, _ := set.Get(models.FieldForecastProbUp)
	assert.InDelta(t, 0.70, sig.ConfidenceHint, 1e-9)
	assert.Equal(t, models.SourceForecast, sig.Source)
}

func TestSignalNormalizer_OutOfUniverseForecastMissing(t *testing.T) {
	sn := newTestNormalizer()
	inputs := normalizerInputs(testSignalTime())
	inputs.InUniverse = false

	set := sn.Normalize(inputs, nil, nil)

	assert.True(t, set.Missing(models.FieldForecastProbUp))
	assert.True(t, set.Missing(models.FieldForecastConf))
}

func TestSignalNormalizer_PeerAndEarningsSignals(t *testing.T) {
	sn := newTestNormalizer()
	peers := &models.PeerReport{
		PeerCount:         3,
		ValuationPosition: models.PeerPremiumValuation,
		MarginPosition:    models.PeerAbove,
		LeveragePosition:  models.PeerSimilarLeverage,
	}
	cv := 0.12
	earnings := &models.EarningsStabilityReport{
		Classification: models.EarningsStable,
		Trend:          models.TrendImproving,
		CV:             &cv,
	}

	set := sn.Normalize(normalizerInputs(testSignalTime()), peers, earnings)

	valuation, ok := set.Text(models.FieldPeerValuation)
	require.True(t, ok)
	assert.Equal(t, models.PeerPremiumValuation, valuation)

	classification, ok := set.Text(models.FieldEarningsStability)
	require.True(t, ok)
	assert.Equal(t, models.EarningsStable, classification)

	earningsCV, ok := set.Float(models.FieldEarningsCV)
	require.True(t, ok)
	assert.InDelta(t, 0.12, earningsCV, 1e-9)
}

func TestSignalNormalizer_NoPeerGroupMissing(t *testing.T) {
	sn := newTestNormalizer()

	set := sn.Normalize(normalizerInputs(testSignalTime()), &models.PeerReport{}, nil)

	assert.True(t, set.Missing(models.FieldPeerValuation))
	assert.True(t, set.Missing(models.FieldPeerMargin))
	assert.True(t, set.Missing(models.FieldPeerLeverage))
}

func TestSignalNormalizer_TechnicalSignalsFromPriceHistory(t *testing.T) {
	sn := newTestNormalizer()
	retrieved := testSignalTime()
	inputs := normalizerInputs(retrieved)
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	inputs.PriceHistory = priceBars(closes, 1)
	// Keep the series' last bar inside the price freshness window.
	inputs.RetrievedAt = inputs.PriceHistory[39].Timestamp.Add(6 * time.Hour)

	set := sn.Normalize(inputs, nil, nil)

	trendDir, ok := set.Text(models.FieldTrendDirection)
	require.True(t, ok)
	assert.Equal(t, TrendUp, trendDir)

	sig, _ := set.Get(models.FieldTrendDirection)
	assert.Equal(t, models.SourceTechnicals, sig.Source)
	assert.Equal(t, hintTechnicals, sig.ConfidenceHint)
}

func TestSignalNormalizer_ShortPriceHistoryTechnicalsMissing(t *testing.T) {
	sn := newTestNormalizer()
	inputs := normalizerInputs(testSignalTime())
	inputs.PriceHistory = priceBars([]float64{100, 101, 102}, 1)

	set := sn.Normalize(inputs, nil, nil)

	assert.True(t, set.Missing(models.FieldTrendDirection))
	assert.True(t, set.Missing(models.FieldVolatilityRegime))
}
