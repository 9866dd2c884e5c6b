package models

// ForecastDirection is the directional call produced by the ensemble.
type ForecastDirection string

const (
	DirectionUpward      ForecastDirection = "upward"
	DirectionDownward    ForecastDirection = "downward"
	DirectionNeutral     ForecastDirection = "neutral"
	DirectionUnavailable ForecastDirection = "unavailable"
)

// Known forecasting model identifiers.
const (
	ModelTFT     = "tft"
	ModelXGBoost = "xgboost"
)

// ModelForecast is one trained model's raw output for a ticker. ProbUp and
// ProbDown must sum to 1; Confidence is the model's own calibration in [0,1].
type ModelForecast struct {
	Model           string   `json:"model"`
	ProbUp          float64  `json:"prob_up"`
	ProbDown        float64  `json:"prob_down"`
	Confidence      float64  `json:"confidence"`
	ExpectedMovePct *float64 `json:"expected_move_pct,omitempty"`
}

// ForecastResult is the combined directional call. When Direction is
// "unavailable" (ticker outside every model's trained universe) all numeric
// fields are nil and ModelsUsed is empty.
type ForecastResult struct {
	Direction       ForecastDirection `json:"direction"`
	ProbUp          *float64          `json:"prob_up,omitempty"`
	ProbDown        *float64          `json:"prob_down,omitempty"`
	Confidence      *float64          `json:"confidence,omitempty"`
	ExpectedMovePct *float64          `json:"expected_move_pct,omitempty"`
	ModelsUsed      []string          `json:"models_used"`
	ModelAgreement  bool              `json:"model_agreement"`
}

// Available reports whether the ensemble produced a usable call.
func (f *ForecastResult) Available() bool {
	return f != nil && f.Direction != DirectionUnavailable
}

// ConfidenceValue returns the combined confidence, 0 when unavailable.
func (f *ForecastResult) ConfidenceValue() float64 {
	if f == nil || f.Confidence == nil {
		return 0
	}
	return *f.Confidence
}
