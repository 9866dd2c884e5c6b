package models

import (
	"encoding/json"
	"sort"
	"time"
)

// SignalSource identifies which upstream payload a signal was derived from.
type SignalSource string

const (
	SourceFundamentals SignalSource = "fundamentals"
	SourceForecast     SignalSource = "forecast"
	SourcePeers        SignalSource = "peers"
	SourceTechnicals   SignalSource = "technicals"
	SourceRisk         SignalSource = "risk"
)

// SignalState is the explicit lifecycle state of a normalized signal.
type SignalState string

const (
	SignalMissing SignalState = "missing"
	SignalStale   SignalState = "stale"
	SignalPresent SignalState = "present"
)

// Canonical field names produced by the signal normalizer. Downstream rules
// key off these, so they are part of the wire contract.
const (
	FieldPrice             = "price"
	FieldMarketCap         = "market_cap"
	FieldPERatio           = "pe_ratio"
	FieldRevenue           = "revenue"
	FieldRevenueGrowth     = "revenue_growth_pct"
	FieldNetIncome         = "net_income"
	FieldNetMargin         = "net_margin_pct"
	FieldFreeCashFlow      = "free_cash_flow"
	FieldTotalDebt         = "total_debt"
	FieldDebtToEquity      = "debt_to_equity"
	FieldDebtToAssets      = "debt_to_assets"
	FieldCurrentRatio      = "current_ratio"
	FieldQuickRatio        = "quick_ratio"
	FieldCashRatio         = "cash_ratio"
	FieldInterestBurden    = "interest_burden"
	FieldBeta              = "beta"
	FieldEarningsYears     = "earnings_years"
	FieldEarningsStability = "earnings_stability_classification"
	FieldEarningsCV        = "earnings_cv"
	FieldEarningsTrend     = "earnings_trend"
	FieldForecastProbUp    = "forecast_prob_up"
	FieldForecastConf      = "forecast_confidence"
	FieldForecastDirection = "forecast_direction"
	FieldPeerValuation     = "peer_valuation_position"
	FieldPeerMargin        = "peer_margin_position"
	FieldPeerLeverage      = "peer_leverage_position"
	FieldTrendDirection    = "trend_direction"
	FieldVolatilityRegime  = "volatility_regime"
)

// Signal is a single normalized data point with provenance and freshness
// metadata. Absence is encoded in the record itself (IsMissing, nil Value),
// never as a numeric placeholder. Signals are immutable once produced by the
// normalizer; construct them with PresentSignal, StaleSignal or
// MissingSignal rather than literal structs.
type Signal struct {
	FieldName      string       `json:"field_name"`
	Value          any          `json:"value"`
	Source         SignalSource `json:"source"`
	ConfidenceHint float64      `json:"confidence_hint"`
	AsOf           *time.Time   `json:"as_of_timestamp"`
	IsStale        bool         `json:"is_stale"`
	IsMissing      bool         `json:"is_missing"`
}

// PresentSignal builds a fresh signal carrying a concrete value.
func PresentSignal(field string, value any, source SignalSource, hint float64, asOf time.Time) Signal {
	return Signal{
		FieldName:      field,
		Value:          value,
		Source:         source,
		ConfidenceHint: hint,
		AsOf:           &asOf,
	}
}

// StaleSignal builds a signal whose value is usable but older than the
// freshness window for its field class.
func StaleSignal(field string, value any, source SignalSource, hint float64, asOf time.Time) Signal {
	s := PresentSignal(field, value, source, hint, asOf)
	s.IsStale = true
	return s
}

// MissingSignal builds a signal recording that the field was absent or null
// in every source.
func MissingSignal(field string, source SignalSource) Signal {
	return Signal{
		FieldName: field,
		Source:    source,
		IsMissing: true,
	}
}

// State reports the tagged-variant state of the signal.
func (s Signal) State() SignalState {
	switch {
	case s.IsMissing:
		return SignalMissing
	case s.IsStale:
		return SignalStale
	default:
		return SignalPresent
	}
}

// Float returns the signal value as a float64. The second return is false
// when the signal is missing or the value is not numeric.
func (s Signal) Float() (float64, bool) {
	if s.IsMissing || s.Value == nil {
		return 0, false
	}
	switch v := s.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Text returns the signal value as a string when it carries one.
func (s Signal) Text() (string, bool) {
	if s.IsMissing || s.Value == nil {
		return "", false
	}
	v, ok := s.Value.(string)
	return v, ok
}

// SignalSet is the normalizer's output: a mapping from canonical field name
// to its Signal, with stable insertion order for deterministic downstream
// iteration. A set is treated as frozen once the normalizer returns it.
type SignalSet struct {
	signals map[string]Signal
	order   []string
}

// NewSignalSet returns an empty signal set.
func NewSignalSet() *SignalSet {
	return &SignalSet{signals: make(map[string]Signal)}
}

// Add inserts a signal, replacing any prior signal for the same field while
// keeping the field's original position in the iteration order.
func (ss *SignalSet) Add(sig Signal) {
	if _, exists := ss.signals[sig.FieldName]; !exists {
		ss.order = append(ss.order, sig.FieldName)
	}
	ss.signals[sig.FieldName] = sig
}

// Get looks up the signal recorded for a field.
func (ss *SignalSet) Get(field string) (Signal, bool) {
	if ss == nil {
		return Signal{}, false
	}
	sig, ok := ss.signals[field]
	return sig, ok
}

// Float returns a field's numeric value; false when the field is absent from
// the set, recorded missing, or non-numeric.
func (ss *SignalSet) Float(field string) (float64, bool) {
	sig, ok := ss.Get(field)
	if !ok {
		return 0, false
	}
	return sig.Float()
}

// Text returns a field's string value when one is recorded.
func (ss *SignalSet) Text(field string) (string, bool) {
	sig, ok := ss.Get(field)
	if !ok {
		return "", false
	}
	return sig.Text()
}

// Present reports whether the field is recorded with a usable value.
func (ss *SignalSet) Present(field string) bool {
	sig, ok := ss.Get(field)
	return ok && !sig.IsMissing
}

// Missing reports whether the field is recorded as missing in all sources.
func (ss *SignalSet) Missing(field string) bool {
	sig, ok := ss.Get(field)
	return ok && sig.IsMissing
}

// Fields returns field names in insertion order.
func (ss *SignalSet) Fields() []string {
	if ss == nil {
		return nil
	}
	out := make([]string, len(ss.order))
	copy(out, ss.order)
	return out
}

// Len returns the number of recorded signals.
func (ss *SignalSet) Len() int {
	if ss == nil {
		return 0
	}
	return len(ss.signals)
}

// MarshalJSON renders the set as a field-name keyed object. Keys marshal in
// sorted order, so serialized output is deterministic for identical inputs.
func (ss *SignalSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(ss.signals)
}

// UnmarshalJSON rebuilds the set from a field-name keyed object. Iteration
// order follows sorted field names, matching the marshaled form.
func (ss *SignalSet) UnmarshalJSON(data []byte) error {
	var raw map[string]Signal
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ss.signals = make(map[string]Signal, len(raw))
	ss.order = nil
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sig := raw[k]
		sig.FieldName = k
		ss.Add(sig)
	}
	return nil
}
