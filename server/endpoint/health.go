package endpoint

import (
	"context"
	"maps"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/portalgpt/observability"
	"github.com/kbukum/portalgpt/version"
)

// HealthChecker reports availability per backend name.
type HealthChecker func(ctx context.Context) map[string]bool

// Health reports each backend as a component. The service is degraded while
// some backends are down and answers 503 once all of them are.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := observability.NewServiceHealth(serviceName, version.Get().Version)
		if checker != nil {
			avail := checker(c.Request.Context())
			for _, name := range slices.Sorted(maps.Keys(avail)) {
				h := observability.Health{Name: name, Status: observability.HealthStatusUp}
				if !avail[name] {
					h.Status = observability.HealthStatusDown
					h.Message = "backend unreachable"
				}
				health.AddComponent(h)
			}
		}

		status := http.StatusOK
		if health.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	}
}

// Liveness answers 200 while the process serves requests.
func Liveness() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	}
}
