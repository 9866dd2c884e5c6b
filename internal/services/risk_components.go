package services

import (
	"fmt"
	"math"

	"github.com/quantfold/equilens-ai-go/internal/models"
)

// Points-ratio breakpoints shared by the leverage and liquidity classifiers.
const (
	pointsRatioCritical = 0.70
	pointsRatioHigh     = 0.45
	pointsRatioModerate = 0.20
)

// Debt-load thresholds.
const (
	debtToEquityExtreme  = 4.0
	debtToEquityHigh     = 2.0
	debtToEquityElevated = 0.5
	debtToAssetsHigh     = 0.6
	debtToAssetsElevated = 0.3
	interestBurdenHeavy  = 0.15
	interestBurdenNoted  = 0.05
)

// Liquidity thresholds.
const (
	currentRatioComfortable = 2.0
	currentRatioAdequate    = 1.5
	currentRatioTight       = 1.0
	currentRatioDistressed  = 0.75
	quickRatioTight         = 1.0
	quickRatioDistressed    = 0.5
	cashRatioThin           = 0.25
	cashRatioCritical       = 0.10
)

// Earnings-stability scoring constants.
const (
	cvPenaltyWeight      = 0.4
	cvPenaltyCap         = 0.4
	decliningPenalty     = 0.2
	mixedPenalty         = 0.1
	negativeMeanPenalty  = 0.2
	minEarningsYears     = 2
	stabilityStable      = 0.75
	stabilityModStable   = 0.50
	stabilityModVolatile = 0.25
)

// pointsCheck is one threshold test contributing to a component's points
// total. Checks with unavailable inputs drop out of both the points and the
// maximum, so missing data never inflates a score.
type pointsCheck struct {
	available bool
	points    float64
	max       float64
	flag      string
}

func classifyPoints(checks []pointsCheck) models.ComponentRisk {
	var points, max float64
	var flags []string
	for _, c := range checks {
		if !c.available {
			continue
		}
		points += c.points
		max += c.max
		if c.points > 0 && c.flag != "" {
			flags = append(flags, c.flag)
		}
	}

	if max == 0 {
		return models.ComponentRisk{
			Level: models.RiskModerate,
			Flags: []string{"insufficient data for component scoring"},
		}
	}

	ratio := points / max
	level := models.RiskLow
	switch {
	case ratio >= pointsRatioCritical:
		level = models.RiskCritical
	case ratio >= pointsRatioHigh:
		level = models.RiskHigh
	case ratio >= pointsRatioModerate:
		level = models.RiskModerate
	}

	return models.ComponentRisk{Level: level, Score: ratio * 10, Flags: flags}
}

// AnalyzeLeverage classifies the debt load from balance-sheet ratios.
func AnalyzeLeverage(f *models.FundamentalSnapshot) models.ComponentRisk {
	de, deOK := f.DebtToEquityRatio()
	da, daOK := f.DebtToAssetsRatio()
	burden, burdenOK := f.InterestBurden()

	checks := []pointsCheck{
		{
			available: deOK,
			points:    gradePoints(de, debtToEquityElevated, debtToEquityHigh, debtToEquityExtreme, 1.5, 3, 4),
			max:       4,
			flag:      fmt.Sprintf("debt-to-equity %.2f is elevated", de),
		},
		{
			available: daOK,
			points:    gradePoints(da, debtToAssetsElevated, debtToAssetsHigh, math.Inf(1), 1, 2, 2),
			max:       2,
			flag:      fmt.Sprintf("debt is %.0f%% of total assets", da*100),
		},
		{
			available: burdenOK,
			points:    gradePoints(burden, interestBurdenNoted, interestBurdenHeavy, math.Inf(1), 1, 2, 2),
			max:       2,
			flag:      fmt.Sprintf("interest expense consumes %.1f%% of revenue", burden*100),
		},
	}

	return classifyPoints(checks)
}

// AnalyzeLiquidity classifies short-term coverage from the liquidity ratios.
func AnalyzeLiquidity(f *models.FundamentalSnapshot) models.ComponentRisk {
	current, currentOK := f.CurrentRatio()
	quick, quickOK := f.QuickRatio()
	cash, cashOK := f.CashRatio()

	var currentPoints float64
	switch {
	case !currentOK:
	case current < currentRatioDistressed:
		currentPoints = 4
	case current < currentRatioTight:
		currentPoints = 3
	case current < currentRatioAdequate:
		currentPoints = 1.5
	case current < currentRatioComfortable:
		currentPoints = 0.5
	}

	var quickPoints float64
	switch {
	case !quickOK:
	case quick < quickRatioDistressed:
		quickPoints = 2
	case quick < quickRatioTight:
		quickPoints = 1
	}

	var cashPoints float64
	switch {
	case !cashOK:
	case cash < cashRatioCritical:
		cashPoints = 2
	case cash < cashRatioThin:
		cashPoints = 1
	}

	checks := []pointsCheck{
		{
			available: currentOK,
			points:    currentPoints,
			max:       4,
			flag:      fmt.Sprintf("current ratio %.2f below comfortable coverage", current),
		},
		{
			available: quickOK,
			points:    quickPoints,
			max:       2,
			flag:      fmt.Sprintf("quick ratio %.2f signals tight near-term liquidity", quick),
		},
		{
			available: cashOK,
			points:    cashPoints,
			max:       2,
			flag:      fmt.Sprintf("cash ratio %.2f leaves a thin cash cushion", cash),
		},
	}

	return classifyPoints(checks)
}

// gradePoints maps a value against three ascending thresholds onto the given
// point grades. Values at or below the first threshold score zero.
func gradePoints(value, t1, t2, t3, p1, p2, p3 float64) float64 {
	switch {
	case value > t3:
		return p3
	case value > t2:
		return p2
	case value > t1:
		return p1
	default:
		return 0
	}
}

// AnalyzeEarningsStability scores the consistency of the net-income history.
// A nil snapshot or fewer than two years of history cannot support a
// volatility read and classifies as insufficient data at moderate risk.
func AnalyzeEarningsStability(f *models.FundamentalSnapshot) *models.EarningsStabilityReport {
	var history []models.EarningsRecord
	if f != nil {
		history = f.EarningsHistory
	}
	if len(history) < minEarningsYears {
		return &models.EarningsStabilityReport{
			Classification: models.EarningsInsufficientData,
			YearsCovered:   len(history),
			RiskLevel:      models.RiskModerate,
			Notes:          []string{"fewer than two years of earnings history"},
		}
	}

	values := make([]float64, len(history))
	for i, record := range history {
		values[i], _ = record.NetIncome.Float64()
	}

	mean := meanOf(values)
	stddev := stddevOf(values, mean)
	trend := earningsTrend(values)

	score := 1.0
	var cv *float64
	var notes []string

	if mean != 0 {
		v := stddev / math.Abs(mean)
		cv = &v
		score -= math.Min(v*cvPenaltyWeight, cvPenaltyCap)
	} else {
		score -= cvPenaltyCap
		notes = append(notes, "mean net income is zero, volatility unmeasurable")
	}

	switch trend {
	case models.TrendDeclining:
		score -= decliningPenalty
	case models.TrendMixed:
		score -= mixedPenalty
	}

	if mean < 0 {
		score -= negativeMeanPenalty
		notes = append(notes, "average net income over the period is negative")
	}

	score = math.Max(score, 0)

	classification, level := classifyStability(score)
	return &models.EarningsStabilityReport{
		Classification: classification,
		StabilityScore: score,
		CV:             cv,
		Trend:          trend,
		YearsCovered:   len(history),
		RiskLevel:      level,
		Notes:          notes,
	}
}

func classifyStability(score float64) (string, models.RiskLevel) {
	switch {
	case score >= stabilityStable:
		return models.EarningsStable, models.RiskLow
	case score >= stabilityModStable:
		return models.EarningsModeratelyStable, models.RiskModerate
	case score >= stabilityModVolatile:
		return models.EarningsModeratelyVolatile, models.RiskModerate
	default:
		return models.EarningsHighlyVolatile, models.RiskHigh
	}
}

// earningsTrend reads the year-over-year deltas: improving when increases
// dominate and the period ends above where it started, declining for the
// mirror case, mixed otherwise.
func earningsTrend(values []float64) string {
	var ups, downs int
	for i := 1; i < len(values); i++ {
		switch {
		case values[i] > values[i-1]:
			ups++
		case values[i] < values[i-1]:
			downs++
		}
	}

	last := values[len(values)-1]
	first := values[0]
	switch {
	case ups > downs && last > first:
		return models.TrendImproving
	case downs > ups && last < first:
		return models.TrendDeclining
	default:
		return models.TrendMixed
	}
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddevOf(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
