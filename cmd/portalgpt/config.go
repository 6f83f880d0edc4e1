package main

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/kbukum/portalgpt/auth"
	"github.com/kbukum/portalgpt/config"
	"github.com/kbukum/portalgpt/endpoint"
	"github.com/kbukum/portalgpt/ingest"
	"github.com/kbukum/portalgpt/llm"
	"github.com/kbukum/portalgpt/llm/ollama"
	"github.com/kbukum/portalgpt/llm/openai"
	"github.com/kbukum/portalgpt/observability"
	"github.com/kbukum/portalgpt/server"
	"github.com/kbukum/portalgpt/storage"
	"github.com/kbukum/portalgpt/validation"
	"github.com/kbukum/portalgpt/version"
)

const serviceName = "portalgpt"

// AppConfig is the full portalgpt configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	LLM           LLMConfig                      `yaml:"llm" mapstructure:"llm"`
	Endpoints     map[string]endpoint.Descriptor `yaml:"endpoints" mapstructure:"endpoints"`
	Server        server.Config                  `yaml:"server" mapstructure:"server"`
	Auth          auth.Config                    `yaml:"auth" mapstructure:"auth"`
	Ingest        IngestConfig                   `yaml:"ingest" mapstructure:"ingest"`
	Observability observability.Config           `yaml:"observability" mapstructure:"observability"`
}

// LLMConfig declares the completion backends and how the orchestrator
// chooses between them.
type LLMConfig struct {
	llm.OrchestratorConfig `yaml:",inline" mapstructure:",squash"`

	// Backends maps a backend name to its provider settings. The optional
	// "type" key picks the provider implementation and defaults to the
	// backend name.
	Backends map[string]map[string]any `yaml:"backends" mapstructure:"backends"`
}

// IngestConfig configures the CKAN metadata export.
type IngestConfig struct {
	ingest.ClientConfig `yaml:",inline" mapstructure:",squash"`

	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Output   string        `yaml:"output" mapstructure:"output"`
	// Upload publishes the finished export. Disabled when no provider is set.
	Upload storage.Config `yaml:"upload" mapstructure:"upload"`
}

const defaultIngestOutput = "data/london_datasets_for_ingestion.jsonl"

var backendTypes = []string{ollama.ProviderName, openai.ProviderName}

func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Version
	}
	c.ServiceConfig.ApplyDefaults()

	if len(c.LLM.Backends) == 0 {
		c.LLM.Backends = map[string]map[string]any{ollama.ProviderName: {}}
		if c.LLM.Preferred == "" {
			c.LLM.Preferred = ollama.ProviderName
		}
	}
	c.LLM.ServiceName = c.Name

	c.Server.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Ingest.ClientConfig.ApplyDefaults()
	if c.Ingest.Interval == 0 {
		c.Ingest.Interval = ingest.DefaultInterval
	}
	if c.Ingest.Output == "" {
		c.Ingest.Output = defaultIngestOutput
	}
	c.Ingest.Upload.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

func (c *AppConfig) validateLLM() error {
	v := validation.New()
	for name, raw := range c.LLM.Backends {
		v.OneOf("llm.backends."+name+".type", backendType(name, raw), backendTypes)
	}
	names := append([]string{c.LLM.Preferred}, c.LLM.Fallbacks...)
	for i, name := range names {
		if name == "" {
			continue
		}
		field := "llm.preferred"
		if i > 0 {
			field = fmt.Sprintf("llm.fallbacks[%d]", i-1)
		}
		_, ok := c.LLM.Backends[name]
		v.Check(ok, field, fmt.Sprintf("backend %q is not configured", name))
	}
	if r := c.LLM.Retry; r != nil {
		v.NonNegative("llm.retry.max_attempts", int64(r.MaxAttempts))
	}
	return v.Err()
}

func (c *AppConfig) validateIngest() error {
	if err := c.Ingest.Upload.Validate(); err != nil {
		return fmt.Errorf("ingest.upload: %w", err)
	}
	if c.Ingest.Upload.Enabled() && c.Ingest.Output == "-" {
		return fmt.Errorf("ingest.upload needs a file output, not stdout")
	}
	return nil
}

// endpointTable merges the configured endpoints over the built-in ones.
func (c *AppConfig) endpointTable() map[string]endpoint.Descriptor {
	table := endpoint.Defaults()
	maps.Copy(table, c.Endpoints)
	return table
}

func backendType(name string, raw map[string]any) string {
	if t, ok := raw["type"].(string); ok && t != "" {
		return strings.ToLower(t)
	}
	return strings.ToLower(name)
}
