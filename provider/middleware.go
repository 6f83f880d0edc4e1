package provider

// Middleware wraps a RequestResponse provider with cross-cutting behavior.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain composes middlewares so the first one is outermost:
// Chain(a, b, c)(p) is a(b(c(p))).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// Labels tells the metrics and tracing middleware how to describe a call.
type Labels[I any] struct {
	// Backend is the name the provider was registered under. It defaults to
	// the provider's Name, which several backends of one kind share.
	Backend string
	// Outcome names a failure, e.g. its failure kind. Failures are labelled
	// "error" when it is nil or returns "".
	Outcome func(error) string
	// Attributes returns span attributes for an input. Empty string values
	// are skipped.
	Attributes func(I) map[string]any
}

func (l Labels[I]) backend(p Provider) string {
	if l.Backend != "" {
		return l.Backend
	}
	return p.Name()
}

func (l Labels[I]) outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if l.Outcome != nil {
		if o := l.Outcome(err); o != "" {
			return o
		}
	}
	return "error"
}
