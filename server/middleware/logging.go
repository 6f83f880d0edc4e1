package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/portalgpt/logger"
	"github.com/kbukum/portalgpt/observability"
)

// RequestLogger logs each request's outcome and size, and records it when
// metrics is non-nil. Health check paths are not logged.
func RequestLogger(log *logger.Logger, metrics *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			if metrics != nil {
				metrics.RecordRequest(r.Context(), r.Method+" "+r.URL.Path, sw.status, duration)
			}
			if isHealthPath(r.URL.Path) {
				return
			}

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sw.status,
				"duration_ms": duration.Milliseconds(),
				"bytes":       sw.bytes,
			}
			l := log.WithContext(r.Context())
			switch {
			case sw.status >= 500:
				l.Error("Request completed", fields)
			case sw.status >= 400:
				l.Warn("Request completed", fields)
			default:
				l.Debug("Request completed", fields)
			}
		})
	}
}

func isHealthPath(path string) bool {
	switch path {
	case "/health", "/alive":
		return true
	}
	return false
}
