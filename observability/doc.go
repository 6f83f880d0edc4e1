// Package observability wires OpenTelemetry tracing and metrics (OTLP over
// HTTP), the service's metric instruments, and health reporting types.
package observability
