package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/obras/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	mw, err := HTTPMetrics(mp.Meter("http.server"))
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(mw)
	engine.GET("/projects/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})

	for _, path := range []string{"/projects/a", "/projects/b", "/projects/missing", "/nowhere"} {
		serve(engine, httptest.NewRequest(http.MethodGet, path, nil))
	}

	metrics := collect(t, reader)
	total, ok := metrics["http_server_request_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := make(map[string]int64)
	for _, dp := range total.DataPoints {
		route, _ := dp.Attributes.Value(telemetry.AttrHTTPRoute)
		group, _ := dp.Attributes.Value(telemetry.AttrHTTPStatusGroup)
		counts[route.AsString()+" "+group.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{
		"/projects/:id 2xx": 2,
		"/projects/:id 4xx": 1,
		"unknown 4xx":       1,
	}, counts)

	_, ok = metrics["http_server_request_duration_seconds"].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	mw, err := HTTPMetrics(nil)
	require.NoError(t, err)
	w := serve(newEngine(mw), httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusGroup(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"}, {204, "2xx"}, {304, "3xx"}, {404, "4xx"}, {503, "5xx"}, {101, "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusGroup(tt.code), "status %d", tt.code)
	}
}
