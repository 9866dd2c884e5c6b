package services

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/equilens-ai-go/internal/models"
)

func newTestTracker() *UncertaintyTracker {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewUncertaintyTracker(logger)
}

func TestUncertaintyTracker_CleanInputs_NoFlags(t *testing.T) {
	ut := newTestTracker()
	signals := models.NewSignalSet()
	signals.Add(models.PresentSignal(models.FieldPrice, 180.0, models.SourceFundamentals, 0.9, testSignalTime()))
	forecast := &models.ForecastResult{Direction: models.DirectionUpward, ModelAgreement: true}

	flags := ut.Track("AAPL", models.AnalysisFull, signals, forecast, true, 3, 5)

	assert.Empty(t, flags)
	assert.NotNil(t, flags)
}

func TestUncertaintyTracker_OutOfUniverse_AlwaysHigh(t *testing.T) {
	ut := newTestTracker()
	forecast := &models.ForecastResult{Direction: models.DirectionUnavailable}

	flags := ut.Track("ZZZZ", models.AnalysisForecast, models.NewSignalSet(), forecast, false, 3, 5)

	require.Len(t, flags, 1)
	assert.Equal(t, models.UncertaintyOutOfUniverse, flags[0].Type)
	assert.Equal(t, models.UncertaintyHigh, flags[0].Severity)
	assert.Equal(t, "ticker", flags[0].Field)
}

func TestUncertaintyTracker_MissingLoadBearingField_High(t *testing.T) {
	ut := newTestTracker()
	signals := models.NewSignalSet()
	signals.Add(models.MissingSignal(models.FieldDebtToEquity, models.SourceFundamentals))

	flags := ut.Track("AAPL", models.AnalysisRisk, signals, nil, true, 3, 5)

	require.Len(t, flags, 1)
	assert.Equal(t, models.UncertaintyMissingData, flags[0].Type)
	assert.Equal(t, models.UncertaintyHigh, flags[0].Severity)
	assert.Equal(t, models.FieldDebtToEquity, flags[0].Field)
	assert.Contains(t, flags[0].Message, "missing in all sources")
}

func TestUncertaintyTracker_MissingPeripheralField_Medium(t *testing.T) {
	ut := newTestTracker()
	signals := models.NewSignalSet()
	// Beta is not load-bearing for a risk analysis.
	signals.Add(models.MissingSignal(models.FieldBeta, models.SourceFundamentals))

	flags := ut.Track("AAPL", models.AnalysisRisk, signals, nil, true, 3, 5)

	require.Len(t, flags, 1)
	assert.Equal(t, models.UncertaintyMedium, flags[0].Severity)
}

func TestUncertaintyTracker_StaleSeverityByFieldClass(t *testing.T) {
	ut := newTestTracker()
	signals := models.NewSignalSet()
	signals.Add(models.StaleSignal(models.FieldPrice, 180.0, models.SourceFundamentals, 0.9, testSignalTime()))
	signals.Add(models.StaleSignal(models.FieldRevenue, 500.0, models.SourceFundamentals, 0.9, testSignalTime()))

	flags := ut.Track("AAPL", models.AnalysisFull, signals, nil, true, 3, 5)

	require.Len(t, flags, 2)
	bySeverity := map[string]models.UncertaintySeverity{}
	for _, f := range flags {
		assert.Equal(t, models.UncertaintyStaleData, f.Type)
		bySeverity[f.Field] = f.Severity
	}
	assert.Equal(t, models.UncertaintyMedium, bySeverity[models.FieldPrice])
	assert.Equal(t, models.UncertaintyLow, bySeverity[models.FieldRevenue])
}

func TestUncertaintyTracker_OneRecordPerField(t *testing.T) {
	ut := newTestTracker()
	signals := models.NewSignalSet()
	signals.Add(models.MissingSignal(models.FieldNetIncome, models.SourceFundamentals))

	flags := ut.Track("AAPL", models.AnalysisFull, signals, nil, true, 3, 5)

	fields := map[string]int{}
	for _, f := range flags {
		fields[f.Field]++
	}
	for field, count := range fields {
		assert.Equal(t, 1, count, "field %s flagged more than once", field)
	}
}

func TestUncertaintyTracker_ShortEarningsRecord(t *testing.T) {
	ut := newTestTracker()

	flags := ut.Track("AAPL", models.AnalysisFull, models.NewSignalSet(), nil, true, 3, 2)

	require.Len(t, flags, 1)
	assert.Equal(t, models.UncertaintyShortEarningsRecord, flags[0].Type)
	assert.Equal(t, models.UncertaintyMedium, flags[0].Severity)
	assert.Equal(t, "earnings_history", flags[0].Field)
}

func TestUncertaintyTracker_ModelDisagreement(t *testing.T) {
	ut := newTestTracker()
	confidence := 0.6
	forecast := &models.ForecastResult{
		Direction:      models.DirectionUpward,
		Confidence:     &confidence,
		ModelAgreement: false,
	}

	flags := ut.Track("AAPL", models.AnalysisForecast, models.NewSignalSet(), forecast, true, 3, 5)

	require.Len(t, flags, 1)
	assert.Equal(t, models.UncertaintyModelDisagreement, flags[0].Type)
	assert.Equal(t, models.UncertaintyMedium, flags[0].Severity)
}

func TestUncertaintyTracker_NoPeerGroup(t *testing.T) {
	ut := newTestTracker()

	flags := ut.Track("AAPL", models.AnalysisFull, models.NewSignalSet(), nil, true, 0, 5)

	require.Len(t, flags, 1)
	assert.Equal(t, models.UncertaintyNoPeerGroup, flags[0].Type)
	assert.Equal(t, models.UncertaintyLow, flags[0].Severity)
}

func TestLoadBearingFields_FullIsUnion(t *testing.T) {
	full := loadBearingFields(models.AnalysisFull)

	for _, field := range forecastFields {
		assert.True(t, full[field], "forecast field %s missing from full set", field)
	}
	for _, field := range riskFields {
		assert.True(t, full[field], "risk field %s missing from full set", field)
	}
}
