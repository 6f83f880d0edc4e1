package jwt

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names an HMAC algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

const minSecretLen = 32

// Config configures token signing.
type Config struct {
	Secret   string        `yaml:"secret" mapstructure:"secret"`
	Method   SigningMethod `yaml:"method" mapstructure:"method"`
	Issuer   string        `yaml:"issuer" mapstructure:"issuer"`
	Audience string        `yaml:"audience" mapstructure:"audience"`
	// TTL is the default token lifetime.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.Issuer == "" {
		c.Issuer = "portalgpt"
	}
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
}

func (c *Config) Validate() error {
	if len(c.Secret) < minSecretLen {
		return errors.New("secret must be at least 32 bytes")
	}
	if c.signingMethod() == nil {
		return errors.New("unsupported signing method: " + string(c.Method))
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS256:
		return gojwt.SigningMethodHS256
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return nil
	}
}
