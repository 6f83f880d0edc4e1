package provider

import (
	"context"
	"time"

	"github.com/kbukum/portalgpt/observability"
)

// WithMetrics records every Execute as one provider operation labelled with
// its outcome, and counts failures by outcome so dashboards can tell a dead
// backend from one returning unusable text.
func WithMetrics[I, O any](metrics *observability.Metrics, labels Labels[I]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &metricsRR[I, O]{inner: inner, metrics: metrics, labels: labels}
	}
}

type metricsRR[I, O any] struct {
	inner   RequestResponse[I, O]
	metrics *observability.Metrics
	labels  Labels[I]
}

func (m *metricsRR[I, O]) Name() string                         { return m.inner.Name() }
func (m *metricsRR[I, O]) IsAvailable(ctx context.Context) bool { return m.inner.IsAvailable(ctx) }

func (m *metricsRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := m.inner.Execute(ctx, input)

	backend := m.labels.backend(m.inner)
	outcome := m.labels.outcome(err)
	m.metrics.RecordOperation(ctx, backend, "execute", outcome, time.Since(start))
	if err != nil {
		m.metrics.RecordCompletionFailure(ctx, backend, outcome)
	}
	return output, err
}
