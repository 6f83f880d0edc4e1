package auth

import (
	"fmt"

	"github.com/kbukum/portalgpt/auth/jwt"
)

// Config guards the HTTP API. Disabled leaves every route open.
type Config struct {
	Enabled bool       `yaml:"enabled" mapstructure:"enabled"`
	JWT     jwt.Config `yaml:"jwt" mapstructure:"jwt"`
	// SkipPaths are path prefixes served without a token.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

func (c *Config) ApplyDefaults() {
	c.JWT.ApplyDefaults()
	if c.SkipPaths == nil {
		c.SkipPaths = []string{"/health", "/alive", "/version"}
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.JWT.Validate(); err != nil {
		return fmt.Errorf("auth.jwt: %w", err)
	}
	return nil
}

// Describe is the one-line summary logged at startup.
func (c *Config) Describe() string {
	if !c.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("JWT(%s) TTL=%s", c.JWT.Method, c.JWT.TTL)
}
