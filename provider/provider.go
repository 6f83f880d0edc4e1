package provider

import "context"

// Provider is anything the Manager can hold: a named backend that can be
// checked for availability.
type Provider interface {
	Name() string
	// IsAvailable may do I/O; callers bound it with ctx.
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider from a decoded config section.
type Factory[T Provider] func(cfg map[string]any) (T, error)
