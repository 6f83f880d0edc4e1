package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	ProviderLocal = "local"
	ProviderS3    = "s3"

	DefaultRegion = "us-east-1"
)

// Config selects and configures a backend. An empty Provider disables
// storage.
type Config struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	// Prefix is prepended to every key.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`

	// BasePath is the root directory of the local backend.
	BasePath string `yaml:"base_path" mapstructure:"base_path"`

	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	Region string `yaml:"region" mapstructure:"region"`
	// Endpoint targets an S3-compatible service such as MinIO and implies
	// path-style addressing.
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

func (c *Config) Enabled() bool { return c.Provider != "" }

func (c *Config) ApplyDefaults() {
	c.Provider = strings.ToLower(c.Provider)
	if c.Provider == ProviderS3 && c.Region == "" {
		c.Region = DefaultRegion
	}
}

func (c *Config) Validate() error {
	switch c.Provider {
	case "":
		return nil
	case ProviderLocal:
		if c.BasePath == "" {
			return errors.New("storage: base_path is required for the local provider")
		}
	case ProviderS3:
		if c.Bucket == "" {
			return errors.New("storage: bucket is required for the s3 provider")
		}
		if (c.AccessKey == "") != (c.SecretKey == "") {
			return errors.New("storage: access_key and secret_key must be set together")
		}
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	return nil
}

// Key joins the configured prefix and name into an object key.
func (c *Config) Key(name string) string {
	if c.Prefix == "" {
		return name
	}
	return path.Join(c.Prefix, name)
}
