// Package config loads service configuration with viper.
//
// Files are searched in ./cmd/<service>/config.yml, ./config/config.yml and
// ./config.yml; a .env file is loaded next, and environment variables win
// over both. UPPER_SNAKE variables are mapped onto nested keys, so
// LLM_PREFERRED overrides llm.preferred.
//
//	var cfg AppConfig
//	v, err := config.Load("portalgpt", &cfg, config.WithWatch(onChange))
package config
