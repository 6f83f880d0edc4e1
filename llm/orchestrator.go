package llm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/portalgpt/logger"
	"github.com/kbukum/portalgpt/observability"
	"github.com/kbukum/portalgpt/provider"
	"github.com/kbukum/portalgpt/resilience"
)

var (
	// ErrNoBackends is returned when the orchestrator has nothing to call.
	ErrNoBackends = errors.New("llm: no backends configured")
	// ErrUnknownBackend is returned for a backend name that was never
	// initialized. Complete skips such names.
	ErrUnknownBackend = errors.New("llm: unknown backend")
)

// OrchestratorConfig selects backends and the policy applied around them.
type OrchestratorConfig struct {
	// Preferred is tried first, then Fallbacks in order. When both are empty
	// every initialized backend is tried, starting from the manager's
	// selector choice and continuing in name order.
	Preferred string   `yaml:"preferred" mapstructure:"preferred"`
	Fallbacks []string `yaml:"fallbacks" mapstructure:"fallbacks"`

	// Retry applies per backend to retryable failures only. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	// CircuitBreaker is instantiated per backend and trips on backend faults
	// only. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// ServiceName prefixes span names.
	ServiceName string `yaml:"-" mapstructure:"-"`
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

func WithLogger(l *logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = l }
}

func WithMetrics(m *observability.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator routes completions across backends with retry, circuit
// breaking and ordered fallback. Each backend is wrapped once on first use
// so its breaker state persists across calls.
type Orchestrator struct {
	manager *provider.Manager[Provider]
	cfg     OrchestratorConfig
	log     *logger.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	wrapped map[string]provider.RequestResponse[CompletionRequest, Result]
}

func NewOrchestrator(manager *provider.Manager[Provider], cfg OrchestratorConfig, opts ...OrchestratorOption) *Orchestrator {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "llm"
	}
	o := &Orchestrator{
		manager: manager,
		cfg:     cfg,
		log:     logger.Get("llm"),
		wrapped: make(map[string]provider.RequestResponse[CompletionRequest, Result]),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Backends returns the configured order, or every initialized backend in
// name order when none is configured.
func (o *Orchestrator) Backends() []string {
	var order []string
	if o.cfg.Preferred != "" {
		order = append(order, o.cfg.Preferred)
	}
	for _, name := range o.cfg.Fallbacks {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	if len(order) == 0 {
		order = o.manager.Available()
	}
	return order
}

// Availability checks each backend in Backends order.
func (o *Orchestrator) Availability(ctx context.Context) map[string]bool {
	out := make(map[string]bool)
	for _, name := range o.Backends() {
		p, err := o.backend(name)
		out[name] = err == nil && p.IsAvailable(ctx)
	}
	return out
}

// Complete tries each backend in turn. It moves on after transport,
// envelope and model-output failures, past an open circuit, and past names
// that were never initialized. Invalid requests, cancellation and unknown
// endpoints end the call at once. When every backend fails the last
// failure is returned.
func (o *Orchestrator) Complete(ctx context.Context, req CompletionRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	order := o.callOrder(ctx)
	if len(order) == 0 {
		return nil, ErrNoBackends
	}

	var lastErr error
	for i, name := range order {
		res, err := o.CompleteWith(ctx, name, req)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil || !shouldFallback(err) {
			return nil, err
		}
		if i < len(order)-1 {
			o.log.WithContext(ctx).Warn("falling back to next backend", logger.Fields(
				logger.FieldProvider, name,
				logger.FieldKind, string(KindOf(err)),
				"next", order[i+1],
				logger.FieldError, err.Error(),
			))
		}
	}
	return nil, lastErr
}

// callOrder is Backends, except that without a configured order the
// selector's pick goes first. When the selector finds nothing available the
// name order is kept so the call still surfaces a real failure.
func (o *Orchestrator) callOrder(ctx context.Context) []string {
	order := o.Backends()
	if o.cfg.Preferred != "" || len(o.cfg.Fallbacks) > 0 || len(order) < 2 {
		return order
	}
	first, _, err := o.manager.Get(ctx)
	if err != nil {
		return order
	}
	i := slices.Index(order, first)
	if i <= 0 {
		return order
	}
	return slices.Concat(order[i:], order[:i])
}

// CompleteWith calls the named backend through its wrapped chain.
func (o *Orchestrator) CompleteWith(ctx context.Context, name string, req CompletionRequest) (Result, error) {
	p, err := o.backend(name)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, req)
}

func (o *Orchestrator) backend(name string) (provider.RequestResponse[CompletionRequest, Result], error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if p, ok := o.wrapped[name]; ok {
		return p, nil
	}

	base, err := o.manager.GetByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, name)
	}

	labels := completionLabels(name)
	middlewares := []provider.Middleware[CompletionRequest, Result]{
		provider.WithLogging[CompletionRequest, Result](o.log),
	}
	if o.metrics != nil {
		middlewares = append(middlewares, provider.WithMetrics[CompletionRequest, Result](o.metrics, labels))
	}
	middlewares = append(middlewares, provider.WithTracing[CompletionRequest, Result](o.cfg.ServiceName, labels))

	var p provider.RequestResponse[CompletionRequest, Result] = provider.Chain(middlewares...)(base)
	p = provider.WithResilience(p, o.resilienceFor(name))
	o.wrapped[name] = p
	return p, nil
}

// completionLabels describes calls to one backend by failure kind, with
// the requested model and token budget on the span.
func completionLabels(name string) provider.Labels[CompletionRequest] {
	return provider.Labels[CompletionRequest]{
		Backend: name,
		Outcome: func(err error) string {
			if kind := KindOf(err); kind != "" {
				return string(kind)
			}
			return "other"
		},
		Attributes: func(req CompletionRequest) map[string]any {
			return map[string]any{
				observability.AttrModel: req.Model,
				"llm.max_tokens":        req.MaxTokens,
			}
		},
	}
}

func (o *Orchestrator) resilienceFor(name string) provider.ResilienceConfig {
	var rc provider.ResilienceConfig
	if o.cfg.Retry != nil {
		retry := *o.cfg.Retry
		retry.RetryIf = IsRetryable
		retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
			o.log.Info("retrying completion", logger.Fields(
				logger.FieldProvider, name,
				logger.FieldAttempt, attempt,
				logger.FieldKind, string(KindOf(err)),
				"backoff", backoff.String(),
			))
		}
		rc.Retry = &retry
	}
	if o.cfg.CircuitBreaker != nil {
		cb := *o.cfg.CircuitBreaker
		cb.Name = name
		cb.IsFailure = IsBackendFault
		cb.OnStateChange = func(name string, from, to resilience.State) {
			o.log.Warn("circuit state changed", logger.Fields(
				logger.FieldProvider, name,
				"from", from.String(),
				"to", to.String(),
			))
		}
		rc.CircuitBreaker = &cb
	}
	return rc
}

func shouldFallback(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, ErrUnknownBackend) {
		return true
	}
	switch KindOf(err) {
	case KindNetwork, KindTimeout, KindHTTPStatus, KindInvalidEnvelope,
		KindEmptyResponse, KindNoJSONFound, KindMalformedJSON:
		return true
	default:
		return false
	}
}
