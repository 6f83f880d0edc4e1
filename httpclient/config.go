package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/portalgpt/resilience"
	"github.com/kbukum/portalgpt/security"
)

const (
	defaultTimeout = 30 * time.Second
)

// Config configures the HTTP client.
type Config struct {
	// BaseURL is prepended to relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds every request end to end. A shorter deadline on the
	// request context takes precedence.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	UserAgent string            `yaml:"user_agent" mapstructure:"user_agent"`
	Headers   map[string]string `yaml:"headers" mapstructure:"headers"`

	Auth *AuthConfig         `yaml:"-" mapstructure:"-"`
	TLS  *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Retry repeats failed round-trips. Nil sends each request once.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	return c.TLS.Validate()
}

// DefaultRetryConfig returns a retry config that only retries retryable *Error values.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}
