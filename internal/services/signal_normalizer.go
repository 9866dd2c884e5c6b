package services

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/config"
	"github.com/quantfold/equilens-ai-go/internal/models"
)

// Per-source confidence hints attached to normalized signals. Forecast
// signals carry the models' own confidence instead.
const (
	hintFundamentals = 0.9
	hintPeers        = 0.8
	hintTechnicals   = 0.7
	hintDerived      = 0.85
)

// priceSensitiveFields use the short freshness window; everything else uses
// the fundamentals window.
var priceSensitiveFields = map[string]bool{
	models.FieldPrice:            true,
	models.FieldForecastProbUp:   true,
	models.FieldForecastConf:     true,
	models.FieldTrendDirection:   true,
	models.FieldVolatilityRegime: true,
}

// SignalNormalizer converts the raw fetched payloads of one query into the
// canonical signal set. Absent or null values become missing signals, never
// numeric placeholders; values older than their freshness window are marked
// stale but still usable.
type SignalNormalizer struct {
	freshness config.FreshnessConfig
	technical *TechnicalContext
	logger    *logrus.Logger
}

// NewSignalNormalizer creates a normalizer with the configured freshness
// windows.
func NewSignalNormalizer(freshness config.FreshnessConfig, logger *logrus.Logger) *SignalNormalizer {
	return &SignalNormalizer{
		freshness: freshness,
		technical: NewTechnicalContext(logger),
		logger:    logger,
	}
}

// Normalize builds the signal set for one query. The peer report and
// earnings report are derived upstream from the same inputs and folded in
// as provenance-tagged signals.
func (sn *SignalNormalizer) Normalize(inputs *models.AnalysisInputs, peers *models.PeerReport, earnings *models.EarningsStabilityReport) *models.SignalSet {
	set := models.NewSignalSet()
	now := inputs.RetrievedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	sn.addFundamentals(set, inputs, now)
	sn.addForecast(set, inputs, now)
	sn.addPeers(set, peers, now)
	sn.addEarnings(set, earnings, now)
	sn.addTechnicals(set, inputs, now)

	sn.logger.WithFields(logrus.Fields{
		"ticker":  inputs.Ticker,
		"signals": set.Len(),
	}).Debug("normalized signal set")

	return set
}

func (sn *SignalNormalizer) add(set *models.SignalSet, field string, value any, source models.SignalSource, hint float64, asOf, now time.Time) {
	if value == nil {
		set.Add(models.MissingSignal(field, source))
		return
	}

	window := sn.freshness.FundamentalsDuration()
	if priceSensitiveFields[field] {
		window = sn.freshness.PriceWindow()
	}

	if now.Sub(asOf) > window {
		set.Add(models.StaleSignal(field, value, source, hint, asOf))
		return
	}
	set.Add(models.PresentSignal(field, value, source, hint, asOf))
}

func (sn *SignalNormalizer) addFundamentals(set *models.SignalSet, inputs *models.AnalysisInputs, now time.Time) {
	f := inputs.Fundamentals

	floatFields := []struct {
		name  string
		value func() (float64, bool)
	}{
		{models.FieldPrice, func() (float64, bool) { return deref(f.Price) }},
		{models.FieldPERatio, func() (float64, bool) { return deref(f.PERatio) }},
		{models.FieldRevenueGrowth, func() (float64, bool) { return deref(f.RevenueGrowthPct) }},
		{models.FieldNetMargin, func() (float64, bool) { return deref(f.NetMarginPct) }},
		{models.FieldBeta, func() (float64, bool) { return deref(f.Beta) }},
		{models.FieldDebtToEquity, f.DebtToEquityRatio},
		{models.FieldDebtToAssets, f.DebtToAssetsRatio},
		{models.FieldCurrentRatio, f.CurrentRatio},
		{models.FieldQuickRatio, f.QuickRatio},
		{models.FieldCashRatio, f.CashRatio},
		{models.FieldInterestBurden, f.InterestBurden},
	}

	decimalFields := []struct {
		name  string
		value func() (float64, bool)
	}{
		{models.FieldMarketCap, func() (float64, bool) { return derefDecimal(f, func() bool { return f.MarketCap != nil }, func() float64 { v, _ := f.MarketCap.Float64(); return v }) }},
		{models.FieldRevenue, func() (float64, bool) { return derefDecimal(f, func() bool { return f.Revenue != nil }, func() float64 { v, _ := f.Revenue.Float64(); return v }) }},
		{models.FieldNetIncome, func() (float64, bool) { return derefDecimal(f, func() bool { return f.NetIncome != nil }, func() float64 { v, _ := f.NetIncome.Float64(); return v }) }},
		{models.FieldFreeCashFlow, func() (float64, bool) { return derefDecimal(f, func() bool { return f.FreeCashFlow != nil }, func() float64 { v, _ := f.FreeCashFlow.Float64(); return v }) }},
		{models.FieldTotalDebt, func() (float64, bool) { return derefDecimal(f, func() bool { return f.TotalDebt != nil }, func() float64 { v, _ := f.TotalDebt.Float64(); return v }) }},
	}

	asOf := now
	if f != nil && !f.AsOf.IsZero() {
		asOf = f.AsOf
	}

	for _, field := range append(floatFields, decimalFields...) {
		if f == nil {
			set.Add(models.MissingSignal(field.name, models.SourceFundamentals))
			continue
		}
		if v, ok := field.value(); ok {
			sn.add(set, field.name, v, models.SourceFundamentals, hintFundamentals, asOf, now)
		} else {
			set.Add(models.MissingSignal(field.name, models.SourceFundamentals))
		}
	}

	if f != nil && len(f.EarningsHistory) > 0 {
		sn.add(set, models.FieldEarningsYears, float64(len(f.EarningsHistory)), models.SourceFundamentals, hintFundamentals, asOf, now)
	} else {
		set.Add(models.MissingSignal(models.FieldEarningsYears, models.SourceFundamentals))
	}
}

func (sn *SignalNormalizer) addForecast(set *models.SignalSet, inputs *models.AnalysisInputs, now time.Time) {
	if !inputs.InUniverse || len(inputs.ModelOutputs) == 0 {
		set.Add(models.MissingSignal(models.FieldForecastProbUp, models.SourceForecast))
		set.Add(models.MissingSignal(models.FieldForecastConf, models.SourceForecast))
		return
	}

	var probUp, confidence float64
	for _, m := range inputs.ModelOutputs {
		probUp += m.ProbUp
		confidence += m.Confidence
	}
	n := float64(len(inputs.ModelOutputs))
	probUp /= n
	confidence /= n

	sn.add(set, models.FieldForecastProbUp, probUp, models.SourceForecast, confidence, now, now)
	sn.add(set, models.FieldForecastConf, confidence, models.SourceForecast, confidence, now, now)
}

func (sn *SignalNormalizer) addPeers(set *models.SignalSet, peers *models.PeerReport, now time.Time) {
	if peers == nil || peers.PeerCount == 0 {
		set.Add(models.MissingSignal(models.FieldPeerValuation, models.SourcePeers))
		set.Add(models.MissingSignal(models.FieldPeerMargin, models.SourcePeers))
		set.Add(models.MissingSignal(models.FieldPeerLeverage, models.SourcePeers))
		return
	}

	sn.add(set, models.FieldPeerValuation, peers.ValuationPosition, models.SourcePeers, hintPeers, now, now)
	sn.add(set, models.FieldPeerMargin, peers.MarginPosition, models.SourcePeers, hintPeers, now, now)
	sn.add(set, models.FieldPeerLeverage, peers.LeveragePosition, models.SourcePeers, hintPeers, now, now)
}

func (sn *SignalNormalizer) addEarnings(set *models.SignalSet, earnings *models.EarningsStabilityReport, now time.Time) {
	if earnings == nil || earnings.Classification == models.EarningsInsufficientData {
		set.Add(models.MissingSignal(models.FieldEarningsStability, models.SourceRisk))
		set.Add(models.MissingSignal(models.FieldEarningsCV, models.SourceRisk))
		set.Add(models.MissingSignal(models.FieldEarningsTrend, models.SourceRisk))
		return
	}

	sn.add(set, models.FieldEarningsStability, earnings.Classification, models.SourceRisk, hintDerived, now, now)
	if earnings.CV != nil {
		sn.add(set, models.FieldEarningsCV, *earnings.CV, models.SourceRisk, hintDerived, now, now)
	} else {
		set.Add(models.MissingSignal(models.FieldEarningsCV, models.SourceRisk))
	}
	if earnings.Trend != "" {
		sn.add(set, models.FieldEarningsTrend, earnings.Trend, models.SourceRisk, hintDerived, now, now)
	} else {
		set.Add(models.MissingSignal(models.FieldEarningsTrend, models.SourceRisk))
	}
}

func (sn *SignalNormalizer) addTechnicals(set *models.SignalSet, inputs *models.AnalysisInputs, now time.Time) {
	summary := sn.technical.Summarize(inputs.PriceHistory)
	if summary == nil {
		set.Add(models.MissingSignal(models.FieldTrendDirection, models.SourceTechnicals))
		set.Add(models.MissingSignal(models.FieldVolatilityRegime, models.SourceTechnicals))
		return
	}

	asOf := summary.AsOf
	if asOf.IsZero() {
		asOf = now
	}
	sn.add(set, models.FieldTrendDirection, summary.TrendDirection, models.SourceTechnicals, hintTechnicals, asOf, now)
	sn.add(set, models.FieldVolatilityRegime, summary.VolatilityRegime, models.SourceTechnicals, hintTechnicals, asOf, now)
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

func derefDecimal(f *models.FundamentalSnapshot, present func() bool, value func() float64) (float64, bool) {
	if f == nil || !present() {
		return 0, false
	}
	return value(), true
}
