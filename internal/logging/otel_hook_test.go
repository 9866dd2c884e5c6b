package logging

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
)

type captureLogger struct {
	embedded.Logger

	mu      sync.Mutex
	records []otellog.Record
}

func (c *captureLogger) Emit(_ context.Context, record otellog.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
}

func (c *captureLogger) Enabled(context.Context, otellog.EnabledParameters) bool {
	return true
}

func (c *captureLogger) emitted() []otellog.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]otellog.Record, len(c.records))
	copy(out, c.records)
	return out
}

func TestOTLPHook_Fire(t *testing.T) {
	capture := &captureLogger{}
	hook := &OTLPHook{logger: capture}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetOutput(io.Discard)
	logger.AddHook(hook)

	logger.WithFields(logrus.Fields{"ticker": "AAPL"}).Warn("stale signal")

	records := capture.emitted()
	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, otellog.SeverityWarn, record.Severity())
	assert.Equal(t, "stale signal", record.Body().AsString())

	found := false
	record.WalkAttributes(func(kv otellog.KeyValue) bool {
		if kv.Key == "ticker" && kv.Value.AsString() == "AAPL" {
			found = true
		}
		return true
	})
	assert.True(t, found, "expected ticker attribute on record")
	assert.WithinDuration(t, time.Now(), record.Timestamp(), time.Minute)
}

func TestOTLPHook_Levels(t *testing.T) {
	hook := &OTLPHook{}
	assert.Equal(t, logrus.AllLevels, hook.Levels())
}

func TestOTLPHook_ShutdownWithoutProvider(t *testing.T) {
	hook := &OTLPHook{}
	assert.NoError(t, hook.Shutdown(context.Background()))
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		level    logrus.Level
		expected otellog.Severity
	}{
		{logrus.TraceLevel, otellog.SeverityTrace},
		{logrus.DebugLevel, otellog.SeverityDebug},
		{logrus.InfoLevel, otellog.SeverityInfo},
		{logrus.WarnLevel, otellog.SeverityWarn},
		{logrus.ErrorLevel, otellog.SeverityError},
		{logrus.FatalLevel, otellog.SeverityFatal},
		{logrus.PanicLevel, otellog.SeverityFatal},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, severityFor(tt.level))
		})
	}
}
