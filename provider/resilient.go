package provider

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/portalgpt/errors"
	"github.com/kbukum/portalgpt/resilience"
)

// WithResilience wraps p with the configured policies.
// Execution chain: RateLimiter -> Bulkhead -> CircuitBreaker -> Retry -> Execute.
// An empty config returns p unchanged.
func WithResilience[I, O any](p RequestResponse[I, O], cfg ResilienceConfig) RequestResponse[I, O] {
	if cfg.IsEmpty() {
		return p
	}
	return &resilientRR[I, O]{inner: p, state: BuildResilience(cfg)}
}

type resilientRR[I, O any] struct {
	inner RequestResponse[I, O]
	state *ResilienceState
}

func (r *resilientRR[I, O]) Name() string { return r.inner.Name() }

// IsAvailable is false while the circuit is open so selectors skip the
// provider.
func (r *resilientRR[I, O]) IsAvailable(ctx context.Context) bool {
	return r.state.CircuitState() != resilience.StateOpen && r.inner.IsAvailable(ctx)
}

func (r *resilientRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return ExecuteWithResilience(ctx, r.state, func() (O, error) {
		return r.inner.Execute(ctx, input)
	})
}

// ExecuteWithResilience runs fn through s's chain:
// RateLimiter.Wait -> Bulkhead -> CircuitBreaker -> Retry -> fn.
// Errors produced by the policies themselves become AppErrors that still
// match their sentinel via errors.Is; errors returned by fn pass through
// untouched.
func ExecuteWithResilience[T any](ctx context.Context, s *ResilienceState, fn func() (T, error)) (T, error) {
	var zero T
	if s == nil {
		return fn()
	}

	if s.rl != nil {
		if err := s.rl.Wait(ctx); err != nil {
			return zero, wrapResilienceError(err)
		}
	}

	call := fn
	if s.retryCfg != nil {
		retryCfg := *s.retryCfg
		call = func() (T, error) {
			return resilience.Retry(ctx, retryCfg, fn)
		}
	}

	if s.cb != nil {
		inner := call
		call = func() (T, error) {
			var (
				result T
				ran    bool
			)
			err := s.cb.Execute(func() error {
				ran = true
				var err error
				result, err = inner()
				return err
			})
			if err != nil && !ran {
				return result, wrapResilienceError(err)
			}
			return result, err
		}
	}

	if s.bh == nil {
		return call()
	}

	var (
		result T
		ran    bool
	)
	err := s.bh.Execute(ctx, func() error {
		ran = true
		var err error
		result, err = call()
		return err
	})
	if err != nil && !ran {
		return zero, wrapResilienceError(err)
	}
	return result, err
}

// wrapResilienceError converts a policy rejection to an AppError.
func wrapResilienceError(err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ServiceUnavailable("provider").WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull):
		return apperrors.ServiceUnavailable("provider").
			WithCause(err).
			WithDetail("reason", "concurrency limit reached")
	case errors.Is(err, context.Canceled):
		return apperrors.Canceled("provider call").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("provider call").WithCause(err)
	default:
		return err
	}
}
