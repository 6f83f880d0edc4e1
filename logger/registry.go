package logger

import "sync"

// overrides holds loggers installed with Register, keyed by component name.
var overrides sync.Map

// Register makes Get(name) return l instead of a logger derived from the
// global one. Tests use it to capture a single component's output.
func Register(name string, l *Logger) {
	overrides.Store(name, l)
}

// Unregister removes an override installed with Register.
func Unregister(name string) {
	overrides.Delete(name)
}

// Get returns the logger for a component: its override if one is
// registered, otherwise the global logger tagged with component=name.
// Derived loggers follow later Init calls.
func Get(name string) *Logger {
	if l, ok := overrides.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}
