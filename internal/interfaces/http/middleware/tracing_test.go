package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs a recording tracer provider for the test.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func tracedEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(RequestID(), TracingWithConfig(TracingConfig{ServiceName: "test-service", Enabled: true}), SpanEnricher())
	engine.GET("/projects/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	return engine
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing(t *testing.T) {
	sr := setupTestTracer(t)
	engine := tracedEngine()

	req := httptest.NewRequest(http.MethodGet, "/projects/abc", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	serve(engine, req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /projects/:id", span.Name())

	v, ok := spanAttr(span, "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-42", v.AsString())
	v, ok = spanAttr(span, "project_id")
	require.True(t, ok)
	assert.Equal(t, "abc", v.AsString())
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestSpanEnricher_ErrorStatus(t *testing.T) {
	sr := setupTestTracer(t)
	serve(tracedEngine(), httptest.NewRequest(http.MethodGet, "/projects/missing", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "Not Found", spans[0].Status().Description)
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	engine := gin.New()
	engine.Use(TracingWithConfig(TracingConfig{Enabled: false}), SpanEnricher())
	engine.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}
