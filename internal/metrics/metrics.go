package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeCacheHit = "cache_hit"
)

// Metrics holds the service's Prometheus instruments.
type Metrics struct {
	AnalysesTotal       *prometheus.CounterVec
	PipelineDuration    *prometheus.HistogramVec
	ContradictionsTotal *prometheus.CounterVec
	UncertaintiesTotal  *prometheus.CounterVec
	CacheLookups        *prometheus.CounterVec
	ProviderFailures    prometheus.Counter
	AlertsSent          prometheus.Counter
}

// New registers the instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "equilens",
			Name:      "analyses_total",
			Help:      "Analyses run, by analysis type and outcome.",
		}, []string{"type", "outcome"}),
		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "equilens",
			Name:      "pipeline_duration_seconds",
			Help:      "Reconciliation pipeline duration, by analysis type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		ContradictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "equilens",
			Name:      "contradictions_total",
			Help:      "Contradictions detected, by severity and rule type.",
		}, []string{"severity", "type"}),
		UncertaintiesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "equilens",
			Name:      "uncertainties_total",
			Help:      "Uncertainty flags recorded, by severity.",
		}, []string{"severity"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "equilens",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, by result.",
		}, []string{"result"}),
		ProviderFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "equilens",
			Name:      "provider_failures_total",
			Help:      "Failed fetches against the market-data sidecar.",
		}),
		AlertsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "equilens",
			Name:      "alerts_sent_total",
			Help:      "Telegram alerts dispatched.",
		}),
	}
}

// NewDefault registers on the global default registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// ObserveAnalysis records one completed analysis.
func (m *Metrics) ObserveAnalysis(analysisType, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(analysisType, outcome).Inc()
	if outcome != OutcomeCacheHit {
		m.PipelineDuration.WithLabelValues(analysisType).Observe(seconds)
	}
}

// RecordContradiction counts one detected contradiction.
func (m *Metrics) RecordContradiction(severity, ruleType string) {
	if m == nil {
		return
	}
	m.ContradictionsTotal.WithLabelValues(severity, ruleType).Inc()
}

// RecordUncertainty counts one uncertainty flag.
func (m *Metrics) RecordUncertainty(severity string) {
	if m == nil {
		return
	}
	m.UncertaintiesTotal.WithLabelValues(severity).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordProviderFailure counts a sidecar fetch failure.
func (m *Metrics) RecordProviderFailure() {
	if m == nil {
		return
	}
	m.ProviderFailures.Inc()
}

// RecordAlert counts a dispatched alert.
func (m *Metrics) RecordAlert() {
	if m == nil {
		return
	}
	m.AlertsSent.Inc()
}
