package provider

import "context"

// RequestResponse is a provider that takes one input and returns one output,
// such as a single HTTP call to a model backend.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}
