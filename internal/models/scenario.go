package models

// ScenarioKey names a supported macro scenario.
type ScenarioKey string

const (
	ScenarioRecession      ScenarioKey = "recession"
	ScenarioHighInflation  ScenarioKey = "high_inflation"
	ScenarioRateHike       ScenarioKey = "rate_hike"
	ScenarioGrowthSlowdown ScenarioKey = "growth_slowdown"
)

// ScenarioAssumptions is one scenario's fixed deterministic adjustment set.
// Impacts are fractions (−0.03 = 3 percentage points once scaled); the
// confidence factor multiplies forecast confidence; the risk amplifier
// scales leverage stress.
type ScenarioAssumptions struct {
	Key                 ScenarioKey `json:"scenario"`
	Description         string      `json:"description"`
	RevenueGrowthImpact float64     `json:"revenue_growth_impact"`
	MarginImpact        float64     `json:"margin_impact"`
	ConfidenceFactor    float64     `json:"confidence_factor"`
	MovementImpact      float64     `json:"movement_impact"`
	RiskAmplifier       float64     `json:"risk_amplifier"`
	InterestCostAdd     float64     `json:"interest_cost_impact_add"`
}

// RevenueStress is the stressed revenue-growth view.
type RevenueStress struct {
	AdjustmentPP    float64 `json:"adjustment_pp"`
	AdjustedGrowth  float64 `json:"adjusted_growth"`
	GrowthDirection string  `json:"growth_direction"`
}

// Growth direction labels under stress.
const (
	GrowthGrowing   = "growing"
	GrowthFlat      = "flat"
	GrowthDeclining = "declining"
)

// MarginStress is the stressed margin view.
type MarginStress struct {
	AdjustmentPP   float64     `json:"adjustment_pp"`
	AdjustedMargin float64     `json:"adjusted_margin"`
	MarginState    MarginState `json:"margin_state"`
}

// LeverageStress is the amplified leverage view: the base debt-load score
// scaled by the scenario's risk amplifier.
type LeverageStress struct {
	BaseLevel     RiskLevel `json:"base_level"`
	StressedScore float64   `json:"stressed_score"`
	StressedLevel RiskLevel `json:"stressed_level"`
	AtRisk        bool      `json:"at_risk"`
}

// ForecastStress is the forecast view under the scenario's haircut.
type ForecastStress struct {
	StressedMovePct    float64 `json:"stressed_move_pct"`
	StressedConfidence float64 `json:"stressed_confidence"`
	Direction          string  `json:"direction"`
}

// Stressed forecast direction labels.
const (
	StressBullish = "bullish"
	StressBearish = "bearish"
	StressNeutral = "neutral"
)

// ScenarioAdjustment is the simulator's full output for one (fundamentals,
// scenario) pair. Derived on demand; never stored inside the base result.
type ScenarioAdjustment struct {
	Scenario       ScenarioKey     `json:"scenario"`
	RevenueStress  RevenueStress   `json:"revenue_stress"`
	MarginStress   MarginStress    `json:"margin_stress"`
	LeverageStress *LeverageStress `json:"leverage_stress,omitempty"`
	ForecastStress *ForecastStress `json:"forecast_stress,omitempty"`
	RiskOutlook    RiskLevel       `json:"risk_outlook"`
	Summary        []string        `json:"summary"`
}
