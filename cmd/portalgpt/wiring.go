package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/kbukum/portalgpt/config"
	"github.com/kbukum/portalgpt/endpoint"
	"github.com/kbukum/portalgpt/llm"
	"github.com/kbukum/portalgpt/llm/ollama"
	"github.com/kbukum/portalgpt/llm/openai"
	"github.com/kbukum/portalgpt/logger"
	"github.com/kbukum/portalgpt/observability"
	"github.com/kbukum/portalgpt/provider"
)

// runtime is what every command builds before doing its work.
type runtime struct {
	cfg       *AppConfig
	endpoints *endpoint.Watched
	metrics   *observability.Metrics
}

// loadRuntime reads the configuration. With watch set, edits to the
// endpoints section of the config file are applied without a restart.
func loadRuntime(flags *rootFlags, watch bool) (*runtime, error) {
	rt := &runtime{endpoints: endpoint.NewWatched(endpoint.Defaults())}

	opts := []config.LoaderOption{}
	if flags.configFile != "" {
		opts = append(opts, config.WithConfigFile(flags.configFile))
	}
	if flags.envFile != "" {
		opts = append(opts, config.WithEnvFile(flags.envFile))
	}
	if watch {
		opts = append(opts, config.WithWatch(rt.reloadEndpoints))
	}

	cfg := &AppConfig{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	rt.cfg = cfg
	rt.endpoints.Reload(cfg.endpointTable())
	return rt, nil
}

func (rt *runtime) reloadEndpoints(v *viper.Viper, e fsnotify.Event) {
	log := logger.Get("config")
	var configured map[string]endpoint.Descriptor
	if err := v.UnmarshalKey("endpoints", &configured); err != nil {
		log.Error("endpoint reload failed", logger.Fields(logger.FieldError, err.Error(), "file", e.Name))
		return
	}
	table := endpoint.Defaults()
	maps.Copy(table, configured)
	rt.endpoints.Reload(table)
	log.Info("endpoints reloaded", logger.Fields("file", e.Name, "endpoints", rt.endpoints.Names()))
}

// builtinFactory returns the provider factory for a backend type.
func builtinFactory(kind string, resolver endpoint.Resolver) (provider.Factory[llm.Provider], error) {
	switch kind {
	case ollama.ProviderName:
		return ollama.Factory(resolver), nil
	case openai.ProviderName:
		return openai.Factory(resolver), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", kind)
	}
}

// buildManager registers and initializes every configured backend.
func buildManager(backends map[string]map[string]any, resolver endpoint.Resolver) (*provider.Manager[llm.Provider], error) {
	manager := llm.NewManager()
	for _, name := range slices.Sorted(maps.Keys(backends)) {
		raw := backends[name]
		factory, err := builtinFactory(backendType(name, raw), resolver)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", name, err)
		}
		manager.Register(name, factory)
		if err := manager.Initialize(name, raw); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

func (rt *runtime) buildOrchestrator() (*llm.Orchestrator, error) {
	manager, err := buildManager(rt.cfg.LLM.Backends, rt.endpoints)
	if err != nil {
		return nil, err
	}
	opts := []llm.OrchestratorOption{llm.WithLogger(logger.Get("llm"))}
	if rt.metrics != nil {
		opts = append(opts, llm.WithMetrics(rt.metrics))
	}
	return llm.NewOrchestrator(manager, rt.cfg.LLM.OrchestratorConfig, opts...), nil
}

// initMetrics binds the instrument set to the global meter, which is a
// no-op until observability.Setup installs an exporter.
func (rt *runtime) initMetrics() error {
	m, err := observability.NewMetrics(observability.Meter())
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	rt.metrics = m
	return nil
}
