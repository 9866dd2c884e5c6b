package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "github.com/quantfold/equilens-ai-go"
	ServiceVersion = "1.0.0"
)

// GetHTTPTracer returns the tracer used by the HTTP middleware.
func GetHTTPTracer() trace.Tracer {
	return otel.Tracer(ServiceName + "/http")
}

// GetPipelineTracer returns the tracer used around the reconciliation
// pipeline.
func GetPipelineTracer() trace.Tracer {
	return otel.Tracer(ServiceName + "/pipeline")
}
