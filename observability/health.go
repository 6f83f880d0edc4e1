package observability

// HealthStatus is the health of a component or the whole service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes one component, e.g. an LLM backend.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ServiceHealth aggregates component health.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Version: version, Status: HealthStatusUp}
}

// AddComponent appends h. Any down component makes the service degraded
// and all components down makes it down.
func (s *ServiceHealth) AddComponent(h Health) {
	s.Components = append(s.Components, h)

	down := 0
	for _, c := range s.Components {
		if c.Status != HealthStatusUp {
			down++
		}
	}
	switch {
	case down == 0:
		s.Status = HealthStatusUp
	case down == len(s.Components):
		s.Status = HealthStatusDown
	default:
		s.Status = HealthStatusDegraded
	}
}
