package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names
const (
	instHTTPRequests     = "http.server.requests"
	instHTTPDuration     = "http.server.duration"
	instHTTPRequestSize  = "http.server.request.size"
	instHTTPResponseSize = "http.server.response.size"
	instDBQueryDuration  = "db.query.duration"
	instDBQueries        = "db.queries.total"
)

// OTelMetrics holds OpenTelemetry metric instruments
type OTelMetrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	httpRequestSize     metric.Int64Histogram
	httpResponseSize    metric.Int64Histogram

	dbQueryDuration metric.Float64Histogram
	dbQueriesTotal  metric.Int64Counter
}

// NewOTelMetrics creates a new OTel metrics instance on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	return NewOTelMetricsWithProvider(otel.GetMeterProvider())
}

// NewOTelMetricsWithProvider creates a new OTel metrics instance on the given provider
func NewOTelMetricsWithProvider(provider metric.MeterProvider) (*OTelMetrics, error) {
	meter := provider.Meter("github.com/platinummonkey/recipebox")

	m := &OTelMetrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		instHTTPRequests,
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, instrumentError(instHTTPRequests, err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		instHTTPDuration,
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, instrumentError(instHTTPDuration, err)
	}

	m.httpRequestSize, err = meter.Int64Histogram(
		instHTTPRequestSize,
		metric.WithDescription("HTTP request size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, instrumentError(instHTTPRequestSize, err)
	}

	m.httpResponseSize, err = meter.Int64Histogram(
		instHTTPResponseSize,
		metric.WithDescription("HTTP response size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, instrumentError(instHTTPResponseSize, err)
	}

	m.dbQueryDuration, err = meter.Float64Histogram(
		instDBQueryDuration,
		metric.WithDescription("Database operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, instrumentError(instDBQueryDuration, err)
	}

	m.dbQueriesTotal, err = meter.Int64Counter(
		instDBQueries,
		metric.WithDescription("Total number of database operations"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, instrumentError(instDBQueries, err)
	}

	return m, nil
}

func instrumentError(name string, err error) error {
	return fmt.Errorf("failed to create instrument %s: %w", name, err)
}

// RecordHTTPRequest records an HTTP request metric
func (m *OTelMetrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration, requestSize, responseSize int64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if requestSize > 0 {
		m.httpRequestSize.Record(ctx, requestSize, metric.WithAttributes(attrs...))
	}
	if responseSize > 0 {
		m.httpResponseSize.Record(ctx, responseSize, metric.WithAttributes(attrs...))
	}
}

// RecordDBQuery records a database operation metric
func (m *OTelMetrics) RecordDBQuery(ctx context.Context, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.Bool("error", err != nil),
	}

	m.dbQueriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.dbQueryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
