package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum for %s, got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	metrics.RecordOperation(ctx, "ollama", "execute", "ok", 20*time.Millisecond)
	metrics.RecordOperation(ctx, "ollama", "execute", "error", 5*time.Millisecond)
	metrics.RecordCompletionFailure(ctx, "ollama", "timeout")
	metrics.RecordRequest(ctx, "/v1/completions", 200, time.Millisecond)
	metrics.RecordDataset(ctx, "written")
	metrics.RecordDataset(ctx, "failed")

	got := collect(t, reader)
	if n := sumOf(t, got["provider.operations"]); n != 2 {
		t.Errorf("expected 2 provider operations, got %d", n)
	}
	if n := sumOf(t, got["llm.completion.failures"]); n != 1 {
		t.Errorf("expected 1 completion failure, got %d", n)
	}
	if n := sumOf(t, got["http.server.requests"]); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
	if n := sumOf(t, got["ingest.datasets"]); n != 2 {
		t.Errorf("expected 2 dataset outcomes, got %d", n)
	}
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "llm.ollama")
	SetSpanAttribute(ctx, AttrProvider, "ollama")
	SetSpanAttribute(ctx, "llm.max_tokens", 2048)
	SetSpanAttribute(ctx, "ignored", struct{}{})
	SetSpanError(ctx, errors.New("timeout"))
	if TraceID(ctx) == "" {
		t.Error("expected a trace id inside a recording span")
	}
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "llm.ollama" {
		t.Errorf("unexpected span name %q", s.Name())
	}
	if s.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", s.Status())
	}
	attrs := map[string]bool{}
	for _, kv := range s.Attributes() {
		attrs[string(kv.Key)] = true
	}
	if !attrs[AttrProvider] || !attrs["llm.max_tokens"] || attrs["ignored"] {
		t.Errorf("unexpected attributes: %v", s.Attributes())
	}
}

func TestSpanHelpers_NoSpan(t *testing.T) {
	ctx := context.Background()
	SetSpanAttribute(ctx, "k", "v")
	SetSpanError(ctx, errors.New("x"))
	if TraceID(ctx) != "" {
		t.Error("expected empty trace id without a span")
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, Identity{Service: "portalgpt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("expected no-op shutdown, got %v", err)
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 || cfg.MetricInterval != 15*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestServiceHealth_AddComponent(t *testing.T) {
	h := NewServiceHealth("portalgpt", "1.0.0")
	h.AddComponent(Health{Name: "ollama", Status: HealthStatusUp})
	if h.Status != HealthStatusUp {
		t.Errorf("expected up, got %s", h.Status)
	}
	h.AddComponent(Health{Name: "openai", Status: HealthStatusDown})
	if h.Status != HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", h.Status)
	}

	all := NewServiceHealth("portalgpt", "")
	all.AddComponent(Health{Name: "ollama", Status: HealthStatusDown})
	if all.Status != HealthStatusDown {
		t.Errorf("expected down, got %s", all.Status)
	}
}
