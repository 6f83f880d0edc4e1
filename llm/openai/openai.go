// Package openai is the llm.Provider for OpenAI-compatible chat completion
// APIs (OpenAI, vLLM, LM Studio, llama.cpp server).
package openai

import (
	"context"
	"errors"
	"fmt"
	"maps"
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
	ProviderName    = "openai"
	DefaultEndpoint = "openai"
	DefaultModel    = "gpt-4o-mini"

	completionsPath = "/chat/completions"
	modelsPath      = "/models"

	transportTimeout    = 10 * time.Minute
	availabilityTimeout = 5 * time.Second
)

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
	if c.Model == "" {
		c.Model = DefaultModel
	}
}

func (c Config) defaults() llm.Defaults {
	d := llm.StandardDefaults()
	d.Model = c.Model
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

func New(resolver endpoint.Resolver, cfg Config) (*Provider, error) {
	if resolver == nil {
		return nil, errors.New("openai: endpoint resolver is required")
	}
	cfg.ApplyDefaults()

	client, err := rest.New(httpclient.Config{Timeout: transportTimeout, TLS: cfg.TLS})
	if err != nil {
		return nil, fmt.Errorf("openai: http client: %w", err)
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
			return nil, fmt.Errorf("openai: %w", err)
		}
		return New(resolver, cfg)
	}
}

func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the resolved endpoint answers GET /models.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	desc, err := p.resolver.Resolve(p.cfg.Endpoint)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	resp, err := rest.Get[map[string]any](ctx, p.client, desc.URL(modelsPath), requestOptions(desc)...)
	return err == nil && resp.StatusCode == http.StatusOK
}

func (p *Provider) Execute(ctx context.Context, req llm.CompletionRequest) (llm.Result, error) {
	return p.GetCompletion(ctx, req)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// GetCompletion makes one POST to /chat/completions bounded by req.Timeout
// and extracts the JSON object from the first choice.
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

	resp, err := rest.Post[chatResponse](ctx, p.client, desc.URL(completionsPath), buildBody(req), requestOptions(desc)...)
	if err != nil {
		f := llm.TransportFailure(ProviderName, err)
		f.Endpoint = desc.Name
		return nil, f
	}
	if len(resp.Data.Choices) == 0 {
		return nil, &llm.Failure{
			Kind: llm.KindInvalidEnvelope, Provider: ProviderName, Endpoint: desc.Name,
			Raw: string(resp.Raw), Err: errors.New("no choices in response"),
		}
	}

	text := resp.Data.Choices[0].Message.Content
	p.log.Debug("openai response", logger.Fields(logger.FieldModel, req.Model, "content", text))
	if strings.TrimSpace(text) == "" {
		return nil, &llm.Failure{Kind: llm.KindEmptyResponse, Provider: ProviderName, Endpoint: desc.Name, Raw: text}
	}

	res, err := llm.ExtractJSON(text)
	if err != nil {
		f, _ := llm.AsFailure(err)
		f.Provider = ProviderName
		f.Endpoint = desc.Name
		return nil, f
	}
	return res, nil
}

func requestOptions(desc endpoint.Descriptor) []rest.RequestOption {
	return []rest.RequestOption{
		rest.WithHeaders(desc.Headers),
		rest.WithAuth(httpclient.BearerAuth(desc.APIKey)),
	}
}

// buildBody lays req.Options under the request's own fields, so options can
// tune sampling but never turn on streaming or replace the prompt.
func buildBody(req llm.CompletionRequest) map[string]any {
	body := make(map[string]any, len(req.Options)+5)
	maps.Copy(body, req.Options)
	body["model"] = req.Model
	body["messages"] = []message{{Role: "user", Content: req.Prompt}}
	body["temperature"] = *req.Temperature
	body["max_tokens"] = req.MaxTokens
	body["stream"] = false
	return body
}
