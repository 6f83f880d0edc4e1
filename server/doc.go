// Package server runs the portalgpt HTTP API: a Gin engine behind an h2c
// handler so HTTP/1.1 and cleartext HTTP/2 clients share one port.
//
// Handler-level middleware (server/middleware) wraps every route:
// panic recovery, request ids, CORS, body size limits and request logging.
// Route-level Gin middleware adds bearer auth and rate limiting where the
// caller mounts it.
//
// Default endpoints (server/endpoint):
//
//   - /health: backend availability as an observability.ServiceHealth
//   - /alive: liveness check
//   - /version: build metadata
package server
