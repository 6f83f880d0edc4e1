package bootstrap

import (
	"time"

	"github.com/kbukum/portalgpt/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
	signals         bool
}

// WithLogger skips logger.Init and uses l.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout bounds the stop hooks. Default 15s.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = d }
}

// WithoutSignals leaves SIGINT and SIGTERM alone; only ctx ends Run.
func WithoutSignals() Option {
	return func(o *appOptions) { o.signals = false }
}
