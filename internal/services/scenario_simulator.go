package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/models"
)

// scenarioTable holds the fixed deterministic assumption set per scenario.
// Impacts are fractions of a percentage point scale (−0.03 becomes −3pp once
// multiplied out).
var scenarioTable = map[models.ScenarioKey]models.ScenarioAssumptions{
	models.ScenarioHighInflation: {
		Key:                 models.ScenarioHighInflation,
		Description:         "persistent high inflation compressing real demand and input costs",
		RevenueGrowthImpact: -0.03,
		MarginImpact:        -0.05,
		ConfidenceFactor:    0.90,
		MovementImpact:      -0.02,
		RiskAmplifier:       1.15,
		InterestCostAdd:     0.01,
	},
	models.ScenarioRecession: {
		Key:                 models.ScenarioRecession,
		Description:         "broad economic contraction with falling demand",
		RevenueGrowthImpact: -0.10,
		MarginImpact:        -0.08,
		ConfidenceFactor:    0.75,
		MovementImpact:      -0.08,
		RiskAmplifier:       1.40,
		InterestCostAdd:     0.02,
	},
	models.ScenarioRateHike: {
		Key:                 models.ScenarioRateHike,
		Description:         "aggressive rate hikes raising the cost of debt",
		RevenueGrowthImpact: -0.02,
		MarginImpact:        -0.02,
		ConfidenceFactor:    0.88,
		MovementImpact:      -0.03,
		RiskAmplifier:       1.30,
		InterestCostAdd:     0.04,
	},
	models.ScenarioGrowthSlowdown: {
		Key:                 models.ScenarioGrowthSlowdown,
		Description:         "gradual demand slowdown without contraction",
		RevenueGrowthImpact: -0.04,
		MarginImpact:        -0.02,
		ConfidenceFactor:    0.92,
		MovementImpact:      -0.03,
		RiskAmplifier:       1.10,
		InterestCostAdd:     0.005,
	},
}

// scenarioOrder fixes the listing order for error messages and the API.
var scenarioOrder = []models.ScenarioKey{
	models.ScenarioRecession,
	models.ScenarioHighInflation,
	models.ScenarioRateHike,
	models.ScenarioGrowthSlowdown,
}

// Growth-direction breakpoints under stress, in percentage points.
const (
	growthGrowingFloor    = 2.0
	growthDecliningCeil   = -1.0
	stressBullishFloor    = 1.0
	stressBearishCeil     = -1.0
	leverageScoreCeiling  = 10.0
	leverageCriticalFloor = 8.0
	leverageHighFloor     = 6.0
	leverageModerateFloor = 3.0
)

// ScenarioSimulator derives the stressed view of a ticker's fundamentals
// under a named macro scenario. Pure function of its inputs: identical
// inputs yield byte-identical output.
type ScenarioSimulator struct {
	aggregator *RiskAggregator
	logger     *logrus.Logger
}

// NewScenarioSimulator creates a simulator. The aggregator is reused for the
// stressed risk outlook so base and stressed views bucket identically.
func NewScenarioSimulator(aggregator *RiskAggregator, logger *logrus.Logger) *ScenarioSimulator {
	return &ScenarioSimulator{aggregator: aggregator, logger: logger}
}

// ValidScenarios lists the supported keys in canonical order.
func ValidScenarios() []models.ScenarioKey {
	out := make([]models.ScenarioKey, len(scenarioOrder))
	copy(out, scenarioOrder)
	return out
}

// ResolveScenario normalizes a raw key and looks it up. Unknown keys are an
// error carrying the valid list; they are never silently ignored.
func ResolveScenario(raw string) (models.ScenarioAssumptions, error) {
	key := models.ScenarioKey(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_"))
	assumptions, ok := scenarioTable[key]
	if !ok {
		return models.ScenarioAssumptions{}, &models.InvalidScenarioError{
			Scenario: raw,
			Valid:    ValidScenarios(),
		}
	}
	return assumptions, nil
}

// Simulate applies a scenario to the base fundamentals and forecast.
func (ss *ScenarioSimulator) Simulate(
	scenario string,
	fundamentals *models.FundamentalSnapshot,
	forecast *models.ForecastResult,
) (*models.ScenarioAdjustment, error) {
	assumptions, err := ResolveScenario(scenario)
	if err != nil {
		return nil, err
	}

	adjustment := &models.ScenarioAdjustment{
		Scenario:      assumptions.Key,
		RevenueStress: stressRevenue(fundamentals, assumptions),
		MarginStress:  stressMargin(fundamentals, assumptions),
	}

	adjustment.LeverageStress = stressLeverage(fundamentals, assumptions)
	adjustment.ForecastStress = stressForecast(forecast, assumptions)
	adjustment.RiskOutlook = ss.stressedOutlook(fundamentals, adjustment)
	adjustment.Summary = buildScenarioSummary(assumptions, adjustment)

	ss.logger.WithFields(logrus.Fields{
		"scenario":     assumptions.Key,
		"risk_outlook": adjustment.RiskOutlook,
	}).Debug("scenario stress simulated")

	return adjustment, nil
}

func stressRevenue(f *models.FundamentalSnapshot, a models.ScenarioAssumptions) models.RevenueStress {
	base := 0.0
	if f != nil && f.RevenueGrowthPct != nil {
		base = *f.RevenueGrowthPct
	}
	adjustmentPP := round2(a.RevenueGrowthImpact * 100)
	adjusted := round2(base + adjustmentPP)

	direction := models.GrowthFlat
	switch {
	case adjusted > growthGrowingFloor:
		direction = models.GrowthGrowing
	case adjusted < growthDecliningCeil:
		direction = models.GrowthDeclining
	}

	return models.RevenueStress{
		AdjustmentPP:    adjustmentPP,
		AdjustedGrowth:  adjusted,
		GrowthDirection: direction,
	}
}

func stressMargin(f *models.FundamentalSnapshot, a models.ScenarioAssumptions) models.MarginStress {
	base := 0.0
	if f != nil && f.NetMarginPct != nil {
		base = *f.NetMarginPct
	}
	adjustmentPP := round2(a.MarginImpact * 100)
	adjusted := round2(base + adjustmentPP)

	return models.MarginStress{
		AdjustmentPP:   adjustmentPP,
		AdjustedMargin: adjusted,
		MarginState:    models.ClassifyMarginState(adjusted),
	}
}

// stressLeverage amplifies the base debt-load score by the scenario's risk
// amplifier. Nil when D/E is unreported.
func stressLeverage(f *models.FundamentalSnapshot, a models.ScenarioAssumptions) *models.LeverageStress {
	de, ok := f.DebtToEquityRatio()
	if !ok {
		return nil
	}

	baseScore, baseLevel := leverageBase(de)
	stressedScore := round2(math.Min(leverageScoreCeiling, baseScore*a.RiskAmplifier))
	stressedLevel := leverageLevelFor(stressedScore)

	return &models.LeverageStress{
		BaseLevel:     baseLevel,
		StressedScore: stressedScore,
		StressedLevel: stressedLevel,
		AtRisk:        stressedLevel.AtLeast(models.RiskHigh),
	}
}

func leverageBase(de float64) (float64, models.RiskLevel) {
	switch {
	case de > 4:
		return 8.0, models.RiskCritical
	case de > 2:
		return 6.0, models.RiskHigh
	case de > 0.5:
		return 3.5, models.RiskModerate
	default:
		return 1.5, models.RiskLow
	}
}

func leverageLevelFor(score float64) models.RiskLevel {
	switch {
	case score >= leverageCriticalFloor:
		return models.RiskCritical
	case score >= leverageHighFloor:
		return models.RiskHigh
	case score >= leverageModerateFloor:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// stressForecast haircuts the forecast's expected movement and confidence.
// Nil when there is no usable forecast.
func stressForecast(forecast *models.ForecastResult, a models.ScenarioAssumptions) *models.ForecastStress {
	if forecast == nil || !forecast.Available() {
		return nil
	}

	movement := 0.0
	if forecast.ExpectedMovePct != nil {
		movement = *forecast.ExpectedMovePct
	}
	stressedMove := round2(movement + a.MovementImpact*100)

	confidence := forecast.ConfidenceValue() * a.ConfidenceFactor
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	direction := models.StressNeutral
	switch {
	case stressedMove > stressBullishFloor:
		direction = models.StressBullish
	case stressedMove < stressBearishCeil:
		direction = models.StressBearish
	}

	return &models.ForecastStress{
		StressedMovePct:    stressedMove,
		StressedConfidence: round2(confidence),
		Direction:          direction,
	}
}

// stressedOutlook re-runs the aggregation over the stressed sub-levels.
func (ss *ScenarioSimulator) stressedOutlook(f *models.FundamentalSnapshot, adj *models.ScenarioAdjustment) models.RiskLevel {
	leverageLevel := models.RiskModerate
	if adj.LeverageStress != nil {
		leverageLevel = adj.LeverageStress.StressedLevel
	}

	liquidityLevel := AnalyzeLiquidity(f).Level

	earningsLevel := models.RiskModerate
	switch adj.MarginStress.MarginState {
	case models.MarginLossMaking:
		earningsLevel = models.RiskHigh
	case models.MarginHealthy:
		earningsLevel = models.RiskLow
	}

	_, outlook := ss.aggregator.CombineLevels(leverageLevel, liquidityLevel, earningsLevel)
	return outlook
}

func buildScenarioSummary(a models.ScenarioAssumptions, adj *models.ScenarioAdjustment) []string {
	summary := []string{
		a.Description,
		fmt.Sprintf("revenue growth adjusted %.1fpp to %.1f%% (%s)", adj.RevenueStress.AdjustmentPP, adj.RevenueStress.AdjustedGrowth, adj.RevenueStress.GrowthDirection),
		fmt.Sprintf("net margin adjusted %.1fpp to %.1f%% (%s)", adj.MarginStress.AdjustmentPP, adj.MarginStress.AdjustedMargin, adj.MarginStress.MarginState),
	}
	if adj.LeverageStress != nil && adj.LeverageStress.AtRisk {
		summary = append(summary, fmt.Sprintf("debt load under stress reaches %s", adj.LeverageStress.StressedLevel))
	}
	if adj.ForecastStress != nil {
		summary = append(summary, fmt.Sprintf("stressed forecast reads %s at %.2f confidence", adj.ForecastStress.Direction, adj.ForecastStress.StressedConfidence))
	}
	summary = append(summary, fmt.Sprintf("risk outlook under %s: %s", a.Key, adj.RiskOutlook))
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
