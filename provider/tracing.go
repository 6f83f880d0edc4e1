package provider

import (
	"context"

	"github.com/kbukum/portalgpt/observability"
)

// WithTracing opens a "{serviceName}.{backend}" span per Execute. The span
// carries the input's attributes and, on failure, the outcome under
// observability.AttrFailureKind.
func WithTracing[I, O any](serviceName string, labels Labels[I]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &tracingRR[I, O]{inner: inner, serviceName: serviceName, labels: labels}
	}
}

type tracingRR[I, O any] struct {
	inner       RequestResponse[I, O]
	serviceName string
	labels      Labels[I]
}

func (t *tracingRR[I, O]) Name() string                         { return t.inner.Name() }
func (t *tracingRR[I, O]) IsAvailable(ctx context.Context) bool { return t.inner.IsAvailable(ctx) }

func (t *tracingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	backend := t.labels.backend(t.inner)
	ctx, span := observability.StartSpan(ctx, t.serviceName+"."+backend)
	defer span.End()

	observability.SetSpanAttribute(ctx, observability.AttrServiceName, t.serviceName)
	observability.SetSpanAttribute(ctx, observability.AttrProvider, backend)
	if t.labels.Attributes != nil {
		for k, v := range t.labels.Attributes(input) {
			if s, ok := v.(string); ok && s == "" {
				continue
			}
			observability.SetSpanAttribute(ctx, k, v)
		}
	}

	output, err := t.inner.Execute(ctx, input)
	if err != nil {
		observability.SetSpanAttribute(ctx, observability.AttrFailureKind, t.labels.outcome(err))
		observability.SetSpanError(ctx, err)
	}
	return output, err
}
