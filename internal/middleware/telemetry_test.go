package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func tracedContext(t *testing.T) (*gin.Context, trace.Span, *tracetest.InMemoryExporter) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx, span := tracer.Start(req.Context(), "test-span")
	c.Request = req.WithContext(ctx)
	return c, span, exporter
}

func TestRecordError(t *testing.T) {
	c, span, exporter := tracedContext(t)

	RecordError(c, errors.New("fetch failed"), "upstream unavailable")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "upstream unavailable", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestAddSpanAttribute(t *testing.T) {
	c, span, exporter := tracedContext(t)

	AddSpanAttribute(c, "ticker", "AAPL")
	AddSpanAttribute(c, "peer_count", 3)
	AddSpanAttribute(c, "confidence", 0.82)
	AddSpanAttribute(c, "cached", false)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	found := make(map[string]bool)
	for _, attr := range spans[0].Attributes {
		found[string(attr.Key)] = true
	}
	assert.True(t, found["ticker"])
	assert.True(t, found["peer_count"])
	assert.True(t, found["confidence"])
	assert.True(t, found["cached"])
}

func TestSpanHelpers_NoActiveSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	assert.NotPanics(t, func() {
		RecordError(c, errors.New("boom"), "no span")
		AddSpanAttribute(c, "ticker", "AAPL")
	})
}
