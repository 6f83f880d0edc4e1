package llm

import "github.com/kbukum/portalgpt/provider"

// NewRegistry creates a provider registry for LLM backends.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}

// NewManager creates a provider manager for LLM backends. Without a
// configured order the orchestrator starts from the manager's round-robin
// choice, spreading calls over the backends that are up.
func NewManager() *provider.Manager[Provider] {
	return provider.NewManager(NewRegistry(), &provider.RoundRobinSelector[Provider]{})
}
