package provider

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync/atomic"
)

// ErrNoProvider is returned by selectors when nothing is available.
var ErrNoProvider = errors.New("no available provider")

// Selector picks one provider from the available options and reports the
// name it was stored under.
type Selector[T Provider] interface {
	Select(ctx context.Context, providers map[string]T) (string, T, error)
}

// RoundRobinSelector rotates across providers in name order, skipping
// unavailable ones.
type RoundRobinSelector[T Provider] struct {
	counter atomic.Uint64
}

func (s *RoundRobinSelector[T]) Select(ctx context.Context, providers map[string]T) (string, T, error) {
	names := slices.Sorted(maps.Keys(providers))
	var zero T
	if len(names) == 0 {
		return "", zero, ErrNoProvider
	}

	n := len(names)
	start := int(s.counter.Add(1) - 1)
	for i := range n {
		name := names[(start+i)%n]
		if p := providers[name]; p.IsAvailable(ctx) {
			return name, p, nil
		}
	}
	return "", zero, ErrNoProvider
}
