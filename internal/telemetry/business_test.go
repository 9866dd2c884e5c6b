package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBusinessTracer(t *testing.T) {
	assert.NotNil(t, NewBusinessTracer())
}

func TestBusinessTracer_TraceAnalysisPipeline(t *testing.T) {
	bt := NewBusinessTracer()

	ctx, span := bt.TraceAnalysisPipeline(context.Background(), "AAPL", "full")
	require.NotNil(t, span)
	assert.NotNil(t, ctx)
	defer span.Finish()

	bt.RecordPipelineResult(span, PipelineMetrics{
		Confidence:         0.82,
		ConfidenceLabel:    "High",
		OverallRisk:        "moderate",
		Outlook:            "positive",
		ContradictionCount: 1,
		UncertaintyCount:   2,
		Duration:           120 * time.Millisecond,
	})
}

func TestBusinessTracer_TraceContradictionDetection(t *testing.T) {
	bt := NewBusinessTracer()

	_, span := bt.TraceContradictionDetection(context.Background(), "MSFT")
	require.NotNil(t, span)
	defer span.Finish()

	bt.RecordContradictionMetrics(span, ContradictionMetrics{
		Total:    3,
		Critical: 1,
		Warning:  1,
		Note:     1,
	})
}

func TestBusinessTracer_TraceForecastEnsemble(t *testing.T) {
	bt := NewBusinessTracer()

	_, span := bt.TraceForecastEnsemble(context.Background(), "NVDA", 2)
	require.NotNil(t, span)
	defer span.Finish()

	bt.RecordForecastResult(span, ForecastMetrics{
		Direction:      "upward",
		Confidence:     0.7,
		ModelAgreement: true,
	})
}

func TestBusinessTracer_TraceProviderFetch(t *testing.T) {
	bt := NewBusinessTracer()

	_, span := bt.TraceProviderFetch(context.Background(), "XOM", "fundamentals")
	require.NotNil(t, span)
	defer span.Finish()

	bt.RecordFetchResult(span, FetchMetrics{
		Duration:     40 * time.Millisecond,
		Success:      false,
		BreakerState: "open",
	})
}

func TestBusinessTracer_RecordNotificationResult(t *testing.T) {
	bt := NewBusinessTracer()

	_, span := bt.TraceNotification(context.Background(), "critical_contradiction_alert", "telegram")
	require.NotNil(t, span)
	defer span.Finish()

	bt.RecordNotificationResult(span, false, 3, errors.New("chat unreachable"))
	bt.RecordNotificationResult(span, true, 3, nil)
}

func TestBusinessTracer_ZeroValueMetrics(t *testing.T) {
	bt := NewBusinessTracer()

	_, span := bt.TraceAnalysisPipeline(context.Background(), "", "")
	require.NotNil(t, span)
	defer span.Finish()

	bt.RecordPipelineResult(span, PipelineMetrics{})
	bt.RecordContradictionMetrics(span, ContradictionMetrics{})
	bt.RecordForecastResult(span, ForecastMetrics{})
	bt.RecordFetchResult(span, FetchMetrics{})
}
