// Package errors defines AppError, the structured error rendered at the
// service's edges. It carries a machine-readable code, an HTTP status and a
// retryable flag, and serializes to an RFC 7807 style body.
package errors
