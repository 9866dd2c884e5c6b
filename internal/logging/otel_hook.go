// Package logging bridges logrus to OpenTelemetry log export. Attaching the
// hook to the application logger ships every entry to the collector without
// changing call sites.
package logging

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// OTLPHook is a logrus hook that emits each entry as an OTLP log record.
type OTLPHook struct {
	logger   otellog.Logger
	provider *sdklog.LoggerProvider
}

// NewOTLPHook builds the exporter pipeline against the given collector
// endpoint. Call Shutdown on exit to drain batched records.
func NewOTLPHook(ctx context.Context, endpoint, serviceName, serviceVersion, environment string) (*OTLPHook, error) {
	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(endpoint),
		otlploghttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			semconv.DeploymentEnvironment(environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp log resource: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)

	return &OTLPHook{
		logger:   provider.Logger(serviceName),
		provider: provider,
	}, nil
}

// Levels subscribes the hook to every log level.
func (h *OTLPHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire converts the logrus entry into an OTLP record and emits it.
func (h *OTLPHook) Fire(entry *logrus.Entry) error {
	var record otellog.Record
	record.SetTimestamp(entry.Time)
	record.SetObservedTimestamp(time.Now())
	record.SetSeverity(severityFor(entry.Level))
	record.SetSeverityText(entry.Level.String())
	record.SetBody(otellog.StringValue(entry.Message))

	for key, value := range entry.Data {
		record.AddAttributes(otellog.String(key, fmt.Sprintf("%v", value)))
	}

	ctx := entry.Context
	if ctx == nil {
		ctx = context.Background()
	}
	h.logger.Emit(ctx, record)
	return nil
}

// Shutdown drains buffered records within the context deadline.
func (h *OTLPHook) Shutdown(ctx context.Context) error {
	if h.provider == nil {
		return nil
	}
	return h.provider.Shutdown(ctx)
}

func severityFor(level logrus.Level) otellog.Severity {
	switch level {
	case logrus.TraceLevel:
		return otellog.SeverityTrace
	case logrus.DebugLevel:
		return otellog.SeverityDebug
	case logrus.InfoLevel:
		return otellog.SeverityInfo
	case logrus.WarnLevel:
		return otellog.SeverityWarn
	case logrus.ErrorLevel:
		return otellog.SeverityError
	case logrus.FatalLevel, logrus.PanicLevel:
		return otellog.SeverityFatal
	default:
		return otellog.SeverityInfo
	}
}
