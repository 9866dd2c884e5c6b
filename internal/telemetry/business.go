package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// BusinessTracer traces domain operations with Sentry spans: analysis
// pipeline runs, contradiction detection, forecast combination, sidecar
// fetches and alert delivery.
type BusinessTracer struct{}

// NewBusinessTracer creates a tracer.
func NewBusinessTracer() *BusinessTracer {
	return &BusinessTracer{}
}

// TraceAnalysisPipeline starts a span covering one reconciliation run.
func (bt *BusinessTracer) TraceAnalysisPipeline(ctx context.Context, ticker string, analysisType string) (context.Context, *sentry.Span) {
	span := sentry.StartSpan(ctx, "analysis_pipeline")
	span.SetTag("ticker", ticker)
	span.SetTag("analysis_type", analysisType)
	return span.Context(), span
}

// RecordPipelineResult annotates a pipeline span with the envelope summary.
func (bt *BusinessTracer) RecordPipelineResult(span *sentry.Span, metrics PipelineMetrics) {
	span.SetData("confidence", metrics.Confidence)
	span.SetTag("confidence_label", metrics.ConfidenceLabel)
	span.SetTag("overall_risk", metrics.OverallRisk)
	span.SetTag("outlook", metrics.Outlook)
	span.SetData("contradiction_count", metrics.ContradictionCount)
	span.SetData("uncertainty_count", metrics.UncertaintyCount)
	span.SetData("duration_ms", metrics.Duration.Milliseconds())
}

// TraceContradictionDetection starts a span for the rule sweep.
func (bt *BusinessTracer) TraceContradictionDetection(ctx context.Context, ticker string) (context.Context, *sentry.Span) {
	span := sentry.StartSpan(ctx, "contradiction_detection")
	span.SetTag("ticker", ticker)
	return span.Context(), span
}

// RecordContradictionMetrics records rule-sweep results onto a span.
func (bt *BusinessTracer) RecordContradictionMetrics(span *sentry.Span, metrics ContradictionMetrics) {
	span.SetData("total", metrics.Total)
	span.SetData("critical", metrics.Critical)
	span.SetData("warning", metrics.Warning)
	span.SetData("note", metrics.Note)
}

// TraceForecastEnsemble starts a span for model combination.
func (bt *BusinessTracer) TraceForecastEnsemble(ctx context.Context, ticker string, modelCount int) (context.Context, *sentry.Span) {
	span := sentry.StartSpan(ctx, "forecast_ensemble")
	span.SetTag("ticker", ticker)
	span.SetData("model_count", modelCount)
	return span.Context(), span
}

// RecordForecastResult records the combined forecast onto a span.
func (bt *BusinessTracer) RecordForecastResult(span *sentry.Span, metrics ForecastMetrics) {
	span.SetTag("direction", metrics.Direction)
	span.SetData("confidence", metrics.Confidence)
	span.SetData("model_agreement", metrics.ModelAgreement)
}

// TraceProviderFetch starts a span around a market-data sidecar request.
func (bt *BusinessTracer) TraceProviderFetch(ctx context.Context, ticker string, section string) (context.Context, *sentry.Span) {
	span := sentry.StartSpan(ctx, "provider_fetch")
	span.SetTag("ticker", ticker)
	span.SetTag("section", section)
	return span.Context(), span
}

// RecordFetchResult records a fetch outcome onto a span.
func (bt *BusinessTracer) RecordFetchResult(span *sentry.Span, metrics FetchMetrics) {
	span.SetData("duration_ms", metrics.Duration.Milliseconds())
	span.SetData("success", metrics.Success)
	span.SetTag("breaker_state", metrics.BreakerState)
	if !metrics.Success {
		span.Status = sentry.SpanStatusUnavailable
	} else {
		span.Status = sentry.SpanStatusOK
	}
}

// TraceNotification starts a span for alert delivery.
func (bt *BusinessTracer) TraceNotification(ctx context.Context, notificationType string, channel string) (context.Context, *sentry.Span) {
	span := sentry.StartSpan(ctx, "notification")
	span.SetTag("notification_type", notificationType)
	span.SetTag("channel", channel)
	return span.Context(), span
}

// RecordNotificationResult records a delivery outcome onto a span.
func (bt *BusinessTracer) RecordNotificationResult(span *sentry.Span, success bool, recipientCount int, err error) {
	span.SetData("success", success)
	span.SetData("recipient_count", recipientCount)
	if err != nil {
		span.SetTag("error", err.Error())
		span.Status = sentry.SpanStatusInternalError
	} else {
		span.Status = sentry.SpanStatusOK
	}
}

// PipelineMetrics summarizes one reconciliation run for telemetry.
type PipelineMetrics struct {
	Confidence         float64
	ConfidenceLabel    string
	OverallRisk        string
	Outlook            string
	ContradictionCount int
	UncertaintyCount   int
	Duration           time.Duration
}

// ContradictionMetrics counts rule-sweep findings by severity.
type ContradictionMetrics struct {
	Total    int
	Critical int
	Warning  int
	Note     int
}

// ForecastMetrics summarizes the combined forecast for telemetry.
type ForecastMetrics struct {
	Direction      string
	Confidence     float64
	ModelAgreement bool
}

// FetchMetrics summarizes one sidecar request for telemetry.
type FetchMetrics struct {
	Duration     time.Duration
	Success      bool
	BreakerState string
}
