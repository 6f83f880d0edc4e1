package llm

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// CompletionRequest asks a backend for a structured response. Zero values
// select the provider's defaults.
type CompletionRequest struct {
	Prompt string
	// Schema describes the expected shape. It is passed along, never enforced.
	Schema      map[string]any
	Model       string
	Temperature *float64
	MaxTokens   int
	Timeout     time.Duration
	// Options holds backend-specific settings.
	Options map[string]any
}

// Result is the decoded JSON object. Numbers are json.Number.
type Result map[string]any

// Defaults are a provider's values for unset request fields.
type Defaults struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Built-in defaults.
const (
	DefaultModel       = "llama2:13b"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
	DefaultTimeout     = 30 * time.Second
)

// StandardDefaults returns the built-in defaults.
func StandardDefaults() Defaults {
	return Defaults{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
	}
}

// Float returns a pointer to v, for CompletionRequest.Temperature.
func Float(v float64) *float64 { return &v }

// Validate reports a KindInvalidRequest failure for an unusable request.
func (r CompletionRequest) Validate() error {
	if f := r.validate(); f != nil {
		return f
	}
	return nil
}

func (r CompletionRequest) validate() *Failure {
	var reason string
	switch {
	case strings.TrimSpace(r.Prompt) == "":
		reason = "prompt must not be empty"
	case r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2):
		reason = fmt.Sprintf("temperature must be within [0, 2], got %g", *r.Temperature)
	case r.MaxTokens < 0:
		reason = fmt.Sprintf("max tokens must not be negative, got %d", r.MaxTokens)
	case r.Timeout < 0:
		reason = fmt.Sprintf("timeout must not be negative, got %s", r.Timeout)
	default:
		return nil
	}
	return &Failure{Kind: KindInvalidRequest, Err: fmt.Errorf("llm: %s", reason)}
}

// WithDefaults returns a copy of r with unset fields taken from d. Options
// is copied so callers may keep mutating their map.
func (r CompletionRequest) WithDefaults(d Defaults) CompletionRequest {
	if r.Model == "" {
		r.Model = d.Model
	}
	if r.Temperature == nil {
		r.Temperature = Float(d.Temperature)
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = d.MaxTokens
	}
	if r.Timeout == 0 {
		r.Timeout = d.Timeout
	}
	r.Options = maps.Clone(r.Options)
	return r
}

// Prepare validates r and applies d. Providers call it first.
func Prepare(r CompletionRequest, d Defaults, providerName string) (CompletionRequest, error) {
	if f := r.validate(); f != nil {
		f.Provider = providerName
		return r, f
	}
	return r.WithDefaults(d), nil
}
