// Package endpoint maps logical backend names such as "ollama_local" to
// network locations.
//
// Providers keep a Resolver and a name, never a URL, and resolve on every
// call, so a registry that changes at runtime (see Watched) is picked up by
// the next request.
package endpoint

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrUnknownEndpoint matches every *UnknownEndpointError.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Descriptor locates a backend.
type Descriptor struct {
	Name    string            `yaml:"-" mapstructure:"-"`
	BaseURL string            `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string            `yaml:"api_key" mapstructure:"api_key"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// URL joins path onto the descriptor's base URL.
func (d Descriptor) URL(path string) string {
	return strings.TrimRight(d.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Resolver looks up descriptors by logical name.
type Resolver interface {
	Resolve(name string) (Descriptor, error)
}

// UnknownEndpointError reports a lookup miss with the names that do exist.
type UnknownEndpointError struct {
	Name  string
	Known []string
}

func (e *UnknownEndpointError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("endpoint: unknown endpoint %q (no endpoints configured)", e.Name)
	}
	return fmt.Sprintf("endpoint: unknown endpoint %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e *UnknownEndpointError) Is(target error) bool {
	return target == ErrUnknownEndpoint
}

// KnownBackends holds the conventional base URL for each built-in backend name.
var KnownBackends = map[string]string{
	"ollama_local": "http://localhost:11434",
	"openai":       "https://api.openai.com/v1",
}

// Defaults returns descriptors for KnownBackends.
func Defaults() map[string]Descriptor {
	out := make(map[string]Descriptor, len(KnownBackends))
	for name, url := range KnownBackends {
		out[name] = Descriptor{BaseURL: url}
	}
	return out
}

func lookup(m map[string]Descriptor, name string) (Descriptor, error) {
	d, ok := m[name]
	if !ok || d.BaseURL == "" {
		return Descriptor{}, &UnknownEndpointError{Name: name, Known: slices.Sorted(maps.Keys(m))}
	}
	d.Name = name
	return d, nil
}

func normalize(m map[string]Descriptor) map[string]Descriptor {
	out := make(map[string]Descriptor, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Static is a registry fixed at construction, safe for concurrent use.
type Static struct {
	mu        sync.RWMutex
	endpoints map[string]Descriptor
}

// NewStatic copies m into a new registry. Names are case-insensitive.
func NewStatic(m map[string]Descriptor) *Static {
	return &Static{endpoints: normalize(m)}
}

func (s *Static) Resolve(name string) (Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.endpoints, strings.ToLower(name))
}

// Register adds or replaces one endpoint. Intended for startup wiring.
func (s *Static) Register(name string, d Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[strings.ToLower(name)] = d
}

// Watched is a registry whose whole table can be swapped atomically, for
// example from a config file watcher. Readers never block.
type Watched struct {
	current atomic.Pointer[map[string]Descriptor]
}

func NewWatched(initial map[string]Descriptor) *Watched {
	w := &Watched{}
	w.Reload(initial)
	return w
}

func (w *Watched) Resolve(name string) (Descriptor, error) {
	return lookup(*w.current.Load(), strings.ToLower(name))
}

// Reload replaces the table. Calls already past Resolve keep the descriptor
// they got.
func (w *Watched) Reload(m map[string]Descriptor) {
	table := normalize(m)
	w.current.Store(&table)
}

// Names returns the registered names, sorted.
func (w *Watched) Names() []string {
	return slices.Sorted(maps.Keys(*w.current.Load()))
}
