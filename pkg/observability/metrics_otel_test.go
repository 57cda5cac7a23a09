package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMeterProvider creates a test meter provider with a manual reader
func setupTestMeterProvider(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})
	return provider, reader
}

func collectNames(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = m
		}
	}
	return found
}

func TestNewOTelMetrics(t *testing.T) {
	provider, _ := setupTestMeterProvider(t)

	m, err := NewOTelMetricsWithProvider(provider)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotNil(t, m.httpRequestsTotal)
	assert.NotNil(t, m.httpRequestDuration)
	assert.NotNil(t, m.httpRequestSize)
	assert.NotNil(t, m.httpResponseSize)
	assert.NotNil(t, m.dbQueryDuration)
	assert.NotNil(t, m.dbQueriesTotal)
}

type rejectingMeterProvider struct{ noop.MeterProvider }

func (rejectingMeterProvider) Meter(string, ...metric.MeterOption) metric.Meter {
	return rejectingMeter{}
}

// rejectingMeter fails every histogram
type rejectingMeter struct{ noop.Meter }

func (rejectingMeter) Float64Histogram(string, ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	return nil, errors.New("rejected")
}

func TestNewOTelMetrics_ErrorNamesInstrument(t *testing.T) {
	_, err := NewOTelMetricsWithProvider(rejectingMeterProvider{})
	require.Error(t, err)
	assert.EqualError(t, err, "failed to create instrument http.server.duration: rejected")
}

func TestOTelMetrics_RecordHTTPRequest(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	m, err := NewOTelMetricsWithProvider(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordHTTPRequest(ctx, "POST", "/recipes", 201, 120*time.Millisecond, 512, 256)
	m.RecordHTTPRequest(ctx, "DELETE", "/recipes/{id}", 204, 10*time.Millisecond, 0, 0)

	found := collectNames(t, reader)
	require.Contains(t, found, "http.server.requests")
	require.Contains(t, found, "http.server.duration")

	sum, ok := found["http.server.requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)
}

func TestOTelMetrics_RecordDBQuery(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	m, err := NewOTelMetricsWithProvider(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordDBQuery(ctx, "recipes.create", 5*time.Millisecond, nil)
	m.RecordDBQuery(ctx, "recipes.create", 7*time.Millisecond, errors.New("constraint"))

	found := collectNames(t, reader)
	require.Contains(t, found, "db.queries.total")

	sum, ok := found["db.queries.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2, "success and error are separate series")
}
