package llm

import (
	"context"

	"github.com/kbukum/portalgpt/provider"
)

// Provider is a language-model backend. Execute is GetCompletion under the
// generic provider name, so middleware from the provider package applies.
//
// Implementations hold no per-call state, resolve their endpoint on every
// call, and make exactly one HTTP request per call with no retry.
type Provider interface {
	provider.RequestResponse[CompletionRequest, Result]

	GetCompletion(ctx context.Context, req CompletionRequest) (Result, error)
}
