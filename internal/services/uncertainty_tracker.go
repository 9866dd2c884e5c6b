package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/models"
)

// Virtual field keys for flags that are not tied to one normalized signal.
// Distinct keys keep the one-record-per-field invariant intact.
const (
	uncertaintyFieldTicker   = "ticker"
	uncertaintyFieldEarnings = "earnings_history"
	uncertaintyFieldModels   = "model_agreement"
	uncertaintyFieldPeers    = "peer_group"
)

const shortEarningsYears = 3

// forecastFields are load-bearing for forecast-centric analyses.
var forecastFields = []string{
	models.FieldForecastProbUp,
	models.FieldForecastConf,
}

// riskFields are load-bearing for the risk analysis.
var riskFields = []string{
	models.FieldDebtToEquity,
	models.FieldDebtToAssets,
	models.FieldCurrentRatio,
	models.FieldQuickRatio,
	models.FieldCashRatio,
	models.FieldInterestBurden,
	models.FieldNetIncome,
	models.FieldEarningsYears,
}

// fundamentalsFields are load-bearing for the fundamentals snapshot view.
var fundamentalsFields = []string{
	models.FieldPrice,
	models.FieldMarketCap,
	models.FieldPERatio,
	models.FieldRevenue,
	models.FieldRevenueGrowth,
	models.FieldNetIncome,
	models.FieldNetMargin,
}

// scenarioFields are load-bearing for scenario stress.
var scenarioFields = []string{
	models.FieldRevenueGrowth,
	models.FieldNetMargin,
	models.FieldDebtToEquity,
}

// UncertaintyTracker flags data-quality problems per field: missing data,
// staleness, out-of-universe tickers and structural gaps. A field carries at
// most one record; missing outranks stale.
type UncertaintyTracker struct {
	logger *logrus.Logger
}

// NewUncertaintyTracker creates a tracker.
func NewUncertaintyTracker(logger *logrus.Logger) *UncertaintyTracker {
	return &UncertaintyTracker{logger: logger}
}

// Track walks the signal set and the forecast view for one query.
func (ut *UncertaintyTracker) Track(
	ticker string,
	analysisType models.AnalysisType,
	signals *models.SignalSet,
	forecast *models.ForecastResult,
	inUniverse bool,
	peerCount int,
	earningsYears int,
) []models.Uncertainty {
	uncertainties := []models.Uncertainty{}
	flagged := make(map[string]bool)

	record := func(u models.Uncertainty) {
		if flagged[u.Field] {
			return
		}
		flagged[u.Field] = true
		uncertainties = append(uncertainties, u)
	}

	if !inUniverse {
		record(models.Uncertainty{
			Type:     models.UncertaintyOutOfUniverse,
			Severity: models.UncertaintyHigh,
			Field:    uncertaintyFieldTicker,
			Message:  fmt.Sprintf("%s is outside the trained forecast universe, no directional call is possible", ticker),
		})
	}

	loadBearing := loadBearingFields(analysisType)
	for _, field := range signals.Fields() {
		sig, _ := signals.Get(field)
		switch sig.State() {
		case models.SignalMissing:
			severity := models.UncertaintyMedium
			message := fmt.Sprintf("%s reported no value for %s", ticker, field)
			if loadBearing[field] {
				severity = models.UncertaintyHigh
				message = (&models.MissingSignalError{Field: field, AnalysisType: analysisType}).Error()
			}
			record(models.Uncertainty{
				Type:     models.UncertaintyMissingData,
				Severity: severity,
				Field:    field,
				Message:  message,
			})
		case models.SignalStale:
			severity := models.UncertaintyLow
			if priceSensitiveFields[field] {
				severity = models.UncertaintyMedium
			}
			record(models.Uncertainty{
				Type:     models.UncertaintyStaleData,
				Severity: severity,
				Field:    field,
				Message:  fmt.Sprintf("%s value for %s is older than its freshness window", ticker, field),
			})
		}
	}

	if earningsYears > 0 && earningsYears < shortEarningsYears {
		record(models.Uncertainty{
			Type:     models.UncertaintyShortEarningsRecord,
			Severity: models.UncertaintyMedium,
			Field:    uncertaintyFieldEarnings,
			Message:  fmt.Sprintf("only %d years of earnings history available for %s", earningsYears, ticker),
		})
	}

	if forecast != nil && forecast.Available() && !forecast.ModelAgreement {
		record(models.Uncertainty{
			Type:     models.UncertaintyModelDisagreement,
			Severity: models.UncertaintyMedium,
			Field:    uncertaintyFieldModels,
			Message:  fmt.Sprintf("forecast models disagree on direction for %s", ticker),
		})
	}

	if peerCount == 0 {
		record(models.Uncertainty{
			Type:     models.UncertaintyNoPeerGroup,
			Severity: models.UncertaintyLow,
			Field:    uncertaintyFieldPeers,
			Message:  fmt.Sprintf("no peer group available for %s, relative positioning skipped", ticker),
		})
	}

	if len(uncertainties) > 0 {
		ut.logger.WithFields(logrus.Fields{
			"ticker": ticker,
			"count":  len(uncertainties),
		}).Debug("uncertainty flags recorded")
	}

	return uncertainties
}

// loadBearingFields maps an analysis type to the fields whose absence makes
// the answer materially weaker.
func loadBearingFields(analysisType models.AnalysisType) map[string]bool {
	fields := make(map[string]bool)
	include := func(names []string) {
		for _, n := range names {
			fields[n] = true
		}
	}

	switch analysisType {
	case models.AnalysisForecast:
		include(forecastFields)
	case models.AnalysisRisk:
		include(riskFields)
	case models.AnalysisFundamentals:
		include(fundamentalsFields)
	case models.AnalysisScenario:
		include(scenarioFields)
		include(forecastFields)
	default:
		include(forecastFields)
		include(riskFields)
		include(fundamentalsFields)
		include(scenarioFields)
	}

	return fields
}
