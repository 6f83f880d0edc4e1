package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/Availability errors (retryable)
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Request errors
const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeCanceled     ErrorCode = "CANCELED"
)

// Model output errors. The backend answered but its text could not be turned
// into a structured result.
const (
	// ErrCodeEmptyResponse indicates the backend produced no generated text.
	ErrCodeEmptyResponse ErrorCode = "EMPTY_RESPONSE"
	// ErrCodeNoJSONFound indicates the generated text holds no {...} span.
	ErrCodeNoJSONFound ErrorCode = "NO_JSON_FOUND"
	// ErrCodeMalformedJSON indicates the {...} span is not valid JSON.
	ErrCodeMalformedJSON ErrorCode = "MALFORMED_JSON"
	// ErrCodeInvalidEnvelope indicates the backend's response body did not
	// match its documented envelope.
	ErrCodeInvalidEnvelope ErrorCode = "INVALID_ENVELOPE"
)

// Configuration errors
const (
	// ErrCodeUnknownEndpoint indicates a logical endpoint name has no registry entry.
	ErrCodeUnknownEndpoint ErrorCode = "UNKNOWN_ENDPOINT"
)

// Authentication errors
const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Internal errors
const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
