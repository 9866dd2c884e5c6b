package models

// RiskLevel is the four-step risk scale used for sub-scores and the overall
// assessment.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Score maps a level onto the fixed 0-100 numeric scale used by the
// aggregator's weighted sum.
func (l RiskLevel) Score() float64 {
	switch l {
	case RiskLow:
		return 10
	case RiskModerate:
		return 40
	case RiskHigh:
		return 70
	case RiskCritical:
		return 95
	}
	return 40
}

func (l RiskLevel) rank() int {
	switch l {
	case RiskLow:
		return 0
	case RiskModerate:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	}
	return 1
}

// AtLeast reports whether l is as severe as other.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.rank() >= other.rank()
}

// BucketRiskScore buckets a 0-100 score onto the level scale. The breakpoints
// form a pure step function: <25 low, <55 moderate, <80 high, else critical.
func BucketRiskScore(score float64) RiskLevel {
	switch {
	case score < 25:
		return RiskLow
	case score < 55:
		return RiskModerate
	case score < 80:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// RiskBoundaries lists the bucketing breakpoints in ascending order, used by
// the fragile-classification hidden-risk check.
func RiskBoundaries() []float64 {
	return []float64{25, 55, 80}
}

// ComponentRisk is one risk dimension's analysis: the classified level, the
// raw 0-10 points score behind it, and the threshold flags that contributed.
type ComponentRisk struct {
	Level RiskLevel `json:"level"`
	Score float64   `json:"score"`
	Flags []string  `json:"flags,omitempty"`
}

// EarningsStabilityReport is the earnings-history analysis behind the
// earnings-stability sub-level.
type EarningsStabilityReport struct {
	Classification string    `json:"classification"`
	StabilityScore float64   `json:"stability_score"`
	CV             *float64  `json:"cv,omitempty"`
	Trend          string    `json:"trend,omitempty"`
	YearsCovered   int       `json:"years_covered"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Notes          []string  `json:"notes,omitempty"`
}

// Earnings stability classifications.
const (
	EarningsStable             = "stable"
	EarningsModeratelyStable   = "moderately_stable"
	EarningsModeratelyVolatile = "moderately_volatile"
	EarningsHighlyVolatile     = "highly_volatile"
	EarningsInsufficientData   = "insufficient_data"
)

// Earnings trend labels.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendMixed     = "mixed"
)

// RiskAssessment is the aggregated risk view. OverallRisk is always the
// bucketing of OverallRiskScore; HiddenRisks and KeyRisks keep detection
// order.
type RiskAssessment struct {
	OverallRisk       RiskLevel `json:"overall_risk"`
	OverallRiskScore  float64   `json:"overall_risk_score"`
	LeverageRisk      RiskLevel `json:"leverage_risk"`
	LiquidityRisk     RiskLevel `json:"liquidity_risk"`
	EarningsStability RiskLevel `json:"earnings_stability"`
	HiddenRisks       []string  `json:"hidden_risks"`
	KeyRisks          []string  `json:"key_risks"`
}

// MarginState classifies a net margin percentage.
type MarginState string

const (
	MarginHealthy    MarginState = "healthy"
	MarginThin       MarginState = "thin"
	MarginVeryThin   MarginState = "very_thin"
	MarginLossMaking MarginState = "loss_making"
)

// ClassifyMarginState buckets a net margin percentage: >15 healthy, >5 thin,
// >=0 very_thin, negative loss_making. Shared by the base risk view and the
// scenario margin stress so both report the same states.
func ClassifyMarginState(marginPct float64) MarginState {
	switch {
	case marginPct > 15:
		return MarginHealthy
	case marginPct > 5:
		return MarginThin
	case marginPct >= 0:
		return MarginVeryThin
	default:
		return MarginLossMaking
	}
}
