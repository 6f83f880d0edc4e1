// Package ollama is the llm.Provider for Ollama's /api/generate endpoint.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/portalgpt/config"
	"github.com/kbukum/portalgpt/endpoint"
	"github.com/kbukum/portalgpt/httpclient"
	"github.com/kbukum/portalgpt/httpclient/rest"
	"github.com/kbukum/portalgpt/llm"
	"github.com/kbukum/portalgpt/logger"
	"github.com/kbukum/portalgpt/provider"
	"github.com/kbukum/portalgpt/security"
)

const (
	// ProviderName is the registered name for the Ollama provider.
	ProviderName = "ollama"
	// DefaultEndpoint is the logical endpoint resolved when none is configured.
	DefaultEndpoint = "ollama_local"

	generatePath = "/api/generate"
	tagsPath     = "/api/tags"

	// transportTimeout only backstops the per-call deadline.
	transportTimeout    = 10 * time.Minute
	availabilityTimeout = 2 * time.Second
)

// topLevelOptions are request options Ollama expects beside "options"
// rather than inside it.
var topLevelOptions = map[string]bool{
	"format":     true,
	"system":     true,
	"template":   true,
	"keep_alive": true,
	"raw":        true,
}

// Config holds the provider's endpoint name and request defaults.
type Config struct {
	Endpoint    string        `yaml:"endpoint" mapstructure:"endpoint"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Temperature *float64      `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// TLS applies to every endpoint this provider resolves.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
}

func (c Config) defaults() llm.Defaults {
	d := llm.StandardDefaults()
	if c.Model != "" {
		d.Model = c.Model
	}
	if c.Temperature != nil {
		d.Temperature = *c.Temperature
	}
	if c.MaxTokens > 0 {
		d.MaxTokens = c.MaxTokens
	}
	if c.Timeout > 0 {
		d.Timeout = c.Timeout
	}
	return d
}

// Provider implements llm.Provider. It is safe for concurrent use.
type Provider struct {
	cfg      Config
	defaults llm.Defaults
	resolver endpoint.Resolver
	client   *rest.Client
	log      *logger.Logger
}

// New creates a provider resolving cfg.Endpoint through resolver on every call.
func New(resolver endpoint.Resolver, cfg Config) (*Provider, error) {
	if resolver == nil {
		return nil, errors.New("ollama: endpoint resolver is required")
	}
	cfg.ApplyDefaults()

	client, err := rest.New(httpclient.Config{Timeout: transportTimeout, TLS: cfg.TLS})
	if err != nil {
		return nil, fmt.Errorf("ollama: http client: %w", err)
	}
	return &Provider{
		cfg:      cfg,
		defaults: cfg.defaults(),
		resolver: resolver,
		client:   client,
		log:      logger.Get("llm").WithFields(logger.Fields(logger.FieldProvider, ProviderName)),
	}, nil
}

// Factory builds providers from a generic config map with the keys
// endpoint, model, temperature, max_tokens and timeout.
func Factory(resolver endpoint.Resolver) provider.Factory[llm.Provider] {
	return func(raw map[string]any) (llm.Provider, error) {
		var cfg Config
		if err := config.Decode(raw, &cfg); err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
		return New(resolver, cfg)
	}
}

func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the resolved endpoint answers GET /api/tags.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	desc, err := p.resolver.Resolve(p.cfg.Endpoint)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	resp, err := rest.Get[map[string]any](ctx, p.client, desc.URL(tagsPath), rest.WithHeaders(desc.Headers))
	return err == nil && resp.StatusCode == http.StatusOK
}

func (p *Provider) Execute(ctx context.Context, req llm.CompletionRequest) (llm.Result, error) {
	return p.GetCompletion(ctx, req)
}

type generateResponse struct {
	Model    string  `json:"model"`
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// GetCompletion makes one POST to /api/generate bounded by req.Timeout and
// extracts the JSON object from the generated text.
func (p *Provider) GetCompletion(ctx context.Context, req llm.CompletionRequest) (llm.Result, error) {
	req, err := llm.Prepare(req, p.defaults, ProviderName)
	if err != nil {
		return nil, err
	}

	desc, err := p.resolver.Resolve(p.cfg.Endpoint)
	if err != nil {
		return nil, &llm.Failure{Kind: llm.KindUnknownEndpoint, Provider: ProviderName, Endpoint: p.cfg.Endpoint, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	resp, err := rest.Post[generateResponse](ctx, p.client, desc.URL(generatePath), buildBody(req), rest.WithHeaders(desc.Headers))
	if err != nil {
		f := llm.TransportFailure(ProviderName, err)
		f.Endpoint = desc.Name
		return nil, f
	}
	if resp.Data.Response == nil {
		return nil, &llm.Failure{
			Kind: llm.KindInvalidEnvelope, Provider: ProviderName, Endpoint: desc.Name,
			Raw: string(resp.Raw), Err: errors.New(`missing "response" field`),
		}
	}

	text := *resp.Data.Response
	p.log.Debug("ollama response", logger.Fields(logger.FieldModel, req.Model, "content", text))
	if strings.TrimSpace(text) == "" {
		return nil, &llm.Failure{Kind: llm.KindEmptyResponse, Provider: ProviderName, Endpoint: desc.Name, Raw: text}
	}

	res, err := llm.ExtractJSON(text)
	if err != nil {
		f, _ := llm.AsFailure(err)
		f.Provider = ProviderName
		f.Endpoint = desc.Name
		p.log.Warn("could not extract JSON from ollama response", logger.Fields(
			logger.FieldKind, string(f.Kind),
			logger.FieldModel, req.Model,
		))
		return nil, f
	}
	return res, nil
}

func buildBody(req llm.CompletionRequest) map[string]any {
	options := map[string]any{
		"temperature": *req.Temperature,
		"num_predict": req.MaxTokens,
	}
	body := map[string]any{
		"model":  req.Model,
		"prompt": req.Prompt,
		"stream": false,
	}
	for k, v := range req.Options {
		if topLevelOptions[k] {
			body[k] = v
		} else {
			options[k] = v
		}
	}
	body["options"] = options
	return body
}
