package bootstrap

import (
	"time"

	"github.com/kbukum/portalgpt/logger"
)

// Summary collects one-line facts about the running app (backends, listen
// address, auth mode) for a single startup log entry.
type Summary struct {
	name    string
	version string
	startup time.Duration
	keys    []string
	values  map[string]string
}

func NewSummary(name, version string) *Summary {
	return &Summary{name: name, version: version, values: make(map[string]string)}
}

// Set records key. Later calls overwrite the value but keep the position.
func (s *Summary) Set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *Summary) SetStartupDuration(d time.Duration) { s.startup = d }

// Fields returns the summary as log fields.
func (s *Summary) Fields() map[string]interface{} {
	f := logger.Fields("name", s.name, "version", s.version, "startup_ms", s.startup.Milliseconds())
	for _, k := range s.keys {
		f[k] = s.values[k]
	}
	return f
}

// Log writes the summary at info level.
func (s *Summary) Log(l *logger.Logger) {
	l.Info("Application started", s.Fields())
}
