package errors

import (
	"fmt"
	"net/http"
)

// AppError is the error type rendered at service boundaries (HTTP responses,
// CLI output). Domain packages keep their own typed errors and convert at the edge.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError, deriving Retryable from the code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Availability ---

func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

func ConnectionFailed(service string) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("Unable to connect to %s. Please verify the service is running.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

func RateLimited() *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests. Please wait a moment and try again.",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
	}
}

// Canceled reports an operation abandoned by its caller. 499 follows the
// nginx convention for client-closed requests.
func Canceled(operation string) *AppError {
	return &AppError{
		Code: ErrCodeCanceled, Message: "The request was canceled.",
		HTTPStatus: 499, Retryable: false,
		Details: map[string]any{"operation": operation},
	}
}

// --- Request ---

func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// --- Model output ---

// EmptyResponse reports a backend that answered with no generated text.
func EmptyResponse(backend string) *AppError {
	return &AppError{
		Code: ErrCodeEmptyResponse, Message: fmt.Sprintf("The %s backend returned an empty response.", backend),
		HTTPStatus: http.StatusBadGateway,
		Details: map[string]any{"backend": backend},
	}
}

// NoJSONFound reports generated text without a JSON object in it.
func NoJSONFound(backend string) *AppError {
	return &AppError{
		Code: ErrCodeNoJSONFound, Message: "The model response did not contain a JSON object.",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{"backend": backend},
	}
}

// MalformedJSON reports a JSON-looking span that failed to parse.
func MalformedJSON(backend string) *AppError {
	return &AppError{
		Code: ErrCodeMalformedJSON, Message: "The model response contained malformed JSON.",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{"backend": backend},
	}
}

func InvalidEnvelope(backend string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidEnvelope, Message: fmt.Sprintf("The %s backend returned an unexpected response body.", backend),
		HTTPStatus: http.StatusBadGateway,
		Details: map[string]any{"backend": backend},
	}
}

// UnknownEndpoint reports a logical endpoint name missing from the registry.
func UnknownEndpoint(name string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownEndpoint, Message: fmt.Sprintf("No endpoint is configured under %q.", name),
		HTTPStatus: http.StatusInternalServerError,
		Details: map[string]any{"endpoint": name},
	}
}

// --- Authentication ---

func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Code: ErrCodeTokenExpired, Message: "The access token has expired.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func InvalidToken() *AppError {
	return &AppError{
		Code: ErrCodeInvalidToken, Message: "Invalid access token.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// --- Internal ---

func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// ExternalServiceError wraps a failing upstream such as an LLM backend or the
// dataset portal.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}
