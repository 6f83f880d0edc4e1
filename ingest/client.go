package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kbukum/portalgpt/httpclient"
	"github.com/kbukum/portalgpt/httpclient/rest"
	"github.com/kbukum/portalgpt/resilience"
	"github.com/kbukum/portalgpt/security"
)

const (
	DefaultBaseURL   = "https://data.london.gov.uk/api/"
	DefaultUserAgent = "PortalGPT/1.0"

	packageListPath = "3/action/package_list"
	datasetPath     = "dataset/"
)

// Source lists dataset ids and fetches raw metadata for one of them.
type Source interface {
	ListDatasets(ctx context.Context) ([]string, error)
	FetchMetadata(ctx context.Context, id string) (map[string]any, error)
}

// ClientConfig configures the CKAN client.
type ClientConfig struct {
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Retry retries transient portal failures. Nil makes one attempt.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	TLS   *security.TLSConfig     `yaml:"tls" mapstructure:"tls"`
}

func (c *ClientConfig) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Client talks to a CKAN portal.
type Client struct {
	rest *rest.Client
}

func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.ApplyDefaults()

	var retry *resilience.RetryConfig
	if cfg.Retry != nil {
		r := *cfg.Retry
		r.RetryIf = httpclient.IsRetryable
		retry = &r
	}
	c, err := rest.New(httpclient.Config{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
		Retry:     retry,
		TLS:       cfg.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	return &Client{rest: c}, nil
}

type packageListResponse struct {
	Success bool     `json:"success"`
	Result  []string `json:"result"`
}

// ListDatasets returns every dataset id from package_list.
func (c *Client) ListDatasets(ctx context.Context) ([]string, error) {
	resp, err := rest.Get[packageListResponse](ctx, c.rest, packageListPath)
	if err != nil {
		return nil, fmt.Errorf("ingest: list datasets: %w", err)
	}
	return resp.Data.Result, nil
}

// FetchMetadata returns the raw metadata object for id.
func (c *Client) FetchMetadata(ctx context.Context, id string) (map[string]any, error) {
	if id == "" {
		return nil, errors.New("ingest: empty dataset id")
	}
	resp, err := rest.Get[map[string]any](ctx, c.rest, datasetPath+url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("ingest: fetch %s: %w", id, err)
	}
	return resp.Data, nil
}
