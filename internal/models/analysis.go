package models

import (
	"time"
)

// AnalysisType selects which analysis the pipeline runs and which fields
// count as load-bearing for uncertainty severity.
type AnalysisType string

const (
	AnalysisForecast     AnalysisType = "forecast"
	AnalysisFundamentals AnalysisType = "fundamentals"
	AnalysisRisk         AnalysisType = "risk"
	AnalysisScenario     AnalysisType = "scenario"
	AnalysisFull         AnalysisType = "full"
)

// ValidAnalysisType reports whether t is a recognized analysis type.
func ValidAnalysisType(t AnalysisType) bool {
	switch t {
	case AnalysisForecast, AnalysisFundamentals, AnalysisRisk, AnalysisScenario, AnalysisFull:
		return true
	}
	return false
}

// ContradictionSeverity grades a detected contradiction.
type ContradictionSeverity string

const (
	SeverityCritical ContradictionSeverity = "critical"
	SeverityWarning  ContradictionSeverity = "warning"
	SeverityNote     ContradictionSeverity = "note"
)

// Contradiction is a detected logical tension between two signals. Ordering
// of a result's contradictions is detection order; severity sorting is a
// presentation concern of the caller.
type Contradiction struct {
	Type     string                `json:"type"`
	Severity ContradictionSeverity `json:"severity"`
	SignalA  string                `json:"signal_a"`
	SignalB  string                `json:"signal_b"`
	Message  string                `json:"message"`
}

// Contradiction rule types. The detector emits these; callers and the alert
// path match on them.
const (
	ContradictionForecastRiskTension      = "forecast_risk_tension"
	ContradictionForecastVsPeerStrength   = "forecast_vs_peer_strength"
	ContradictionConfidenceVsModelSplit   = "confidence_vs_model_split"
	ContradictionEarningsVsOutlook        = "earnings_vs_outlook"
	ContradictionForecastVsFundamentals   = "forecast_vs_fundamentals"
	ContradictionGrowthVsLeverage         = "growth_vs_leverage"
	ContradictionProfitabilityVsCashflow  = "profitability_vs_cashflow"
	ContradictionValuationVsGrowth        = "valuation_vs_growth"
)

// UncertaintySeverity grades a data-quality flag.
type UncertaintySeverity string

const (
	UncertaintyHigh   UncertaintySeverity = "high"
	UncertaintyMedium UncertaintySeverity = "medium"
	UncertaintyLow    UncertaintySeverity = "low"
)

// Uncertainty is a data-quality flag attached to one field. A field carries
// at most one record per query.
type Uncertainty struct {
	Type     string              `json:"type"`
	Severity UncertaintySeverity `json:"severity"`
	Field    string              `json:"field"`
	Message  string              `json:"message"`
}

// Uncertainty flag types.
const (
	UncertaintyMissingData         = "missing_data"
	UncertaintyStaleData           = "stale_data"
	UncertaintyOutOfUniverse       = "out_of_universe"
	UncertaintyShortEarningsRecord = "insufficient_earnings_history"
	UncertaintyModelDisagreement   = "model_disagreement"
	UncertaintyNoPeerGroup         = "no_peer_group"
)

// ConfidenceLabel is the qualitative reading of a confidence score.
type ConfidenceLabel string

const (
	ConfidenceHigh         ConfidenceLabel = "High"
	ConfidenceModerateHigh ConfidenceLabel = "Moderate-High"
	ConfidenceModerate     ConfidenceLabel = "Moderate"
	ConfidenceLow          ConfidenceLabel = "Low"
	ConfidenceVeryLow      ConfidenceLabel = "Very Low"
)

// ConfidenceFactor is one applied penalty in the score's breakdown.
type ConfidenceFactor struct {
	Factor string  `json:"factor"`
	Impact float64 `json:"impact"`
	Detail string  `json:"detail"`
}

// ConfidenceScore is the reconciled scalar plus its qualitative label and
// the penalty breakdown that produced it.
type ConfidenceScore struct {
	Score   float64            `json:"score"`
	Label   ConfidenceLabel    `json:"label"`
	Factors []ConfidenceFactor `json:"factors"`
}

// PeerReport is the peer-relative positioning summary.
type PeerReport struct {
	PeerCount         int    `json:"peer_count"`
	ValuationPosition string `json:"valuation_position"`
	MarginPosition    string `json:"margin_position"`
	LeveragePosition  string `json:"leverage_position"`
	Summary           string `json:"summary"`
}

// Peer positioning labels.
const (
	PeerPremiumValuation  = "premium_valuation"
	PeerUndervalued       = "undervalued_vs_peers"
	PeerInLine            = "in_line_with_peers"
	PeerAbove             = "above_peers"
	PeerSlightlyAbove     = "slightly_above_peers"
	PeerSlightlyBelow     = "slightly_below_peers"
	PeerBelow             = "below_peers"
	PeerHigherLeverage    = "higher_leverage_than_peers"
	PeerLowerLeverage     = "lower_leverage_than_peers"
	PeerSimilarLeverage   = "similar_leverage_to_peers"
	PeerDataUnavailable   = "peer_data_unavailable"
)

// StrongOutperformance reports whether the positioning marks the company as
// clearly stronger than its peer group (cheaper and more profitable).
func (p *PeerReport) StrongOutperformance() bool {
	if p == nil {
		return false
	}
	return p.ValuationPosition == PeerUndervalued && p.MarginPosition == PeerAbove
}

// Outlook labels produced by the synthesized view.
const (
	OutlookPositive           = "positive"
	OutlookModeratelyPositive = "moderately_positive"
	OutlookNeutral            = "neutral"
	OutlookCautious           = "cautious"
	OutlookNegative           = "negative"
)

// AnalysisRequest is an inbound research query.
type AnalysisRequest struct {
	Ticker       string       `json:"ticker" binding:"required"`
	AnalysisType AnalysisType `json:"analysis_type,omitempty"`
	Scenario     string       `json:"scenario,omitempty"`
	Peers        []string     `json:"peers,omitempty"`
}

// AnalysisInputs bundles everything the reconciliation pipeline consumes for
// one query. The pipeline never fetches; the caller assembles this from the
// provider client.
type AnalysisInputs struct {
	Ticker       string               `json:"ticker"`
	Fundamentals *FundamentalSnapshot `json:"fundamentals,omitempty"`
	ModelOutputs []ModelForecast      `json:"model_outputs,omitempty"`
	Peers        []PeerCompany        `json:"peers,omitempty"`
	PriceHistory []PriceBar           `json:"price_history,omitempty"`
	InUniverse   bool                 `json:"in_universe"`
	RetrievedAt  time.Time            `json:"retrieved_at"`
}

// AnalysisResult is the reconciled envelope returned to callers. The
// forecast/risk/contradictions/uncertainties/confidence/confidence_label
// field names and their enumerations are fixed for existing consumers;
// remaining fields are additive.
type AnalysisResult struct {
	ID                string             `json:"id"`
	Ticker            string             `json:"ticker"`
	AnalysisType      AnalysisType       `json:"analysis_type"`
	GeneratedAt       time.Time          `json:"generated_at"`
	Forecast          ForecastResult     `json:"forecast"`
	Risk              RiskAssessment     `json:"risk"`
	Contradictions    []Contradiction    `json:"contradictions"`
	Uncertainties     []Uncertainty      `json:"uncertainties"`
	Confidence        float64            `json:"confidence"`
	ConfidenceLabel   ConfidenceLabel    `json:"confidence_label"`
	ConfidenceFactors []ConfidenceFactor `json:"confidence_factors,omitempty"`
	PeerPositioning   *PeerReport        `json:"peer_positioning,omitempty"`
	Outlook           string             `json:"outlook,omitempty"`
	KeyMetrics        *KeyMetrics        `json:"key_metrics,omitempty"`
	Scenario          *ScenarioAdjustment `json:"scenario,omitempty"`
}

// CriticalContradictions returns the critical-severity subset in detection
// order, used by the alerting path.
func (r *AnalysisResult) CriticalContradictions() []Contradiction {
	if r == nil {
		return nil
	}
	var out []Contradiction
	for _, c := range r.Contradictions {
		if c.Severity == SeverityCritical {
			out = append(out, c)
		}
	}
	return out
}
