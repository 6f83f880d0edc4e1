package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/portalgpt/logger"
)

// MeterConfig configures the OTLP metric exporter.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	Interval       time.Duration
}

// InitMeter installs a periodic OTLP/HTTP meter provider globally.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(config.ServiceName, config.ServiceVersion, config.Environment)),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the service's instruments.
type Metrics struct {
	requestTotal       metric.Int64Counter
	requestDuration    metric.Float64Histogram
	operationTotal     metric.Int64Counter
	operationDuration  metric.Float64Histogram
	completionFailures metric.Int64Counter
	datasetsIngested   metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.requestTotal, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests served")); err != nil {
		return nil, fmt.Errorf("observability: http.server.requests: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("observability: http.server.duration: %w", err)
	}
	if m.operationTotal, err = meter.Int64Counter("provider.operations",
		metric.WithDescription("Provider calls by outcome")); err != nil {
		return nil, fmt.Errorf("observability: provider.operations: %w", err)
	}
	if m.operationDuration, err = meter.Float64Histogram("provider.duration",
		metric.WithDescription("Provider call latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("observability: provider.duration: %w", err)
	}
	if m.completionFailures, err = meter.Int64Counter("llm.completion.failures",
		metric.WithDescription("Failed completions by failure kind")); err != nil {
		return nil, fmt.Errorf("observability: llm.completion.failures: %w", err)
	}
	if m.datasetsIngested, err = meter.Int64Counter("ingest.datasets",
		metric.WithDescription("Datasets processed by the ingester, by outcome")); err != nil {
		return nil, fmt.Errorf("observability: ingest.datasets: %w", err)
	}
	return &m, nil
}

// RecordRequest records a served HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, route string, status int, duration time.Duration) {
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("route", route)))
}

// RecordOperation records one provider call.
func (m *Metrics) RecordOperation(ctx context.Context, provider, operation, status string, duration time.Duration) {
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))
}

// RecordCompletionFailure counts a failed completion by kind.
func (m *Metrics) RecordCompletionFailure(ctx context.Context, provider, kind string) {
	m.completionFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
}

// RecordDataset counts one ingested dataset; outcome is "written" or "failed".
func (m *Metrics) RecordDataset(ctx context.Context, outcome string) {
	m.datasetsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
