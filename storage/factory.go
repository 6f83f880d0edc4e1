package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/portalgpt/logger"
)

// Factory builds a backend from a validated Config.
type Factory func(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// RegisterFactory makes a backend available to New. Backend packages call
// it from init.
func RegisterFactory(provider string, f Factory) {
	mu.Lock()
	factories[provider] = f
	mu.Unlock()
}

// New validates cfg and builds the configured backend.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("storage: no provider configured")
	}
	if log == nil {
		log = logger.Get("storage")
	}

	mu.RLock()
	f, ok := factories[cfg.Provider]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: provider %q is not linked into this binary", cfg.Provider)
	}
	log.Info("initializing storage", logger.Fields("provider", cfg.Provider))
	return f(ctx, cfg, log)
}
