// Package provider holds the generic request/response provider abstraction
// and the machinery around it: a factory registry, a manager with pluggable
// selection, and composable middleware for logging, metrics, tracing and
// resilience.
//
// Backends implement RequestResponse[I, O] and are decorated once at
// construction:
//
//	labels := provider.Labels[I]{Backend: name, Outcome: classify}
//	p = provider.Chain(
//	    provider.WithLogging[I, O](log),
//	    provider.WithMetrics[I, O](metrics, labels),
//	    provider.WithTracing[I, O]("portalgpt", labels),
//	)(p)
//	p = provider.WithResilience(p, cfg)
package provider
