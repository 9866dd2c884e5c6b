package services

import (
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/models"
)

// Trend direction labels derived from the SMA crossover.
const (
	TrendUp       = "uptrend"
	TrendDown     = "downtrend"
	TrendSideways = "sideways"
)

// Volatility regime labels derived from ATR relative to price.
const (
	VolatilityHigh   = "high"
	VolatilityNormal = "normal"
	VolatilityLow    = "low"
)

const (
	smaShortPeriod = 10
	smaLongPeriod  = 30

	// ATR as a percentage of the last close.
	highVolatilityPct = 4.0
	lowVolatilityPct  = 1.5

	// SMA separation below this fraction reads as sideways.
	trendBand = 0.01
)

// TechnicalSummary is the derived trend and volatility context for one price
// series.
type TechnicalSummary struct {
	TrendDirection   string    `json:"trend_direction"`
	VolatilityRegime string    `json:"volatility_regime"`
	SMAShort         float64   `json:"sma_short"`
	SMALong          float64   `json:"sma_long"`
	ATRPct           float64   `json:"atr_pct"`
	AsOf             time.Time `json:"as_of"`
}

// TechnicalContext derives trend and volatility signals from an OHLCV series.
// Pure computation over the provided bars; it never fetches.
type TechnicalContext struct {
	logger *logrus.Logger
}

// NewTechnicalContext creates a technical context enricher.
func NewTechnicalContext(logger *logrus.Logger) *TechnicalContext {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TechnicalContext{logger: logger}
}

// Summarize derives the trend direction and volatility regime. Returns nil
// when the series is too short for the long SMA.
func (tc *TechnicalContext) Summarize(bars []models.PriceBar) *TechnicalSummary {
	if len(bars) < smaLongPeriod {
		return nil
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		highs[i], _ = bar.High.Float64()
		lows[i], _ = bar.Low.Float64()
		closes[i], _ = bar.Close.Float64()
	}

	shortSMA := lastValue(helper.ChanToSlice(trend.NewSmaWithPeriod[float64](smaShortPeriod).Compute(helper.SliceToChan(closes))))
	longSMA := lastValue(helper.ChanToSlice(trend.NewSmaWithPeriod[float64](smaLongPeriod).Compute(helper.SliceToChan(closes))))

	atrValues := helper.ChanToSlice(volatility.NewAtr[float64]().Compute(
		helper.SliceToChan(highs),
		helper.SliceToChan(lows),
		helper.SliceToChan(closes),
	))
	atr := lastValue(atrValues)

	lastClose := closes[len(closes)-1]
	atrPct := 0.0
	if lastClose > 0 {
		atrPct = atr / lastClose * 100
	}

	summary := &TechnicalSummary{
		TrendDirection:   classifyTrend(shortSMA, longSMA),
		VolatilityRegime: classifyVolatility(atrPct),
		SMAShort:         shortSMA,
		SMALong:          longSMA,
		ATRPct:           atrPct,
		AsOf:             bars[len(bars)-1].Timestamp,
	}

	tc.logger.WithFields(logrus.Fields{
		"trend":      summary.TrendDirection,
		"volatility": summary.VolatilityRegime,
		"atr_pct":    summary.ATRPct,
	}).Debug("derived technical context")

	return summary
}

func classifyTrend(shortSMA, longSMA float64) string {
	if longSMA <= 0 {
		return TrendSideways
	}
	switch {
	case shortSMA > longSMA*(1+trendBand):
		return TrendUp
	case shortSMA < longSMA*(1-trendBand):
		return TrendDown
	default:
		return TrendSideways
	}
}

func classifyVolatility(atrPct float64) string {
	switch {
	case atrPct > highVolatilityPct:
		return VolatilityHigh
	case atrPct < lowVolatilityPct:
		return VolatilityLow
	default:
		return VolatilityNormal
	}
}

func lastValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
