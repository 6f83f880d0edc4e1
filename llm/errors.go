package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/kbukum/portalgpt/errors"
	"github.com/kbukum/portalgpt/httpclient"
	"github.com/kbukum/portalgpt/httpclient/rest"
)

// FailureKind classifies a failed completion.
type FailureKind string

const (
	KindNetwork         FailureKind = "network"
	KindTimeout         FailureKind = "timeout"
	KindCanceled        FailureKind = "canceled"
	KindHTTPStatus      FailureKind = "http_status"
	KindInvalidEnvelope FailureKind = "invalid_envelope"
	KindEmptyResponse   FailureKind = "empty_response"
	KindNoJSONFound     FailureKind = "no_json_found"
	KindMalformedJSON   FailureKind = "malformed_json"
	KindUnknownEndpoint FailureKind = "unknown_endpoint"
	KindInvalidRequest  FailureKind = "invalid_request"
)

// Failure is the error returned by providers and ExtractJSON.
type Failure struct {
	Kind     FailureKind
	Provider string
	// Endpoint is the logical endpoint name, when one was involved.
	Endpoint string
	// Raw is the text the failure was produced from: the model output for
	// extraction failures, the response body for envelope and status failures.
	Raw string
	// Span is the candidate JSON text for KindMalformedJSON.
	Span       string
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	msg := "llm"
	if f.Provider != "" {
		msg += ": " + f.Provider
	}
	msg += ": " + string(f.Kind)
	if f.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", f.StatusCode)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Retryable reports whether the same call may succeed if repeated: network
// errors, timeouts, and 429 or 5xx responses.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindHTTPStatus:
		return f.StatusCode == http.StatusTooManyRequests || f.StatusCode >= 500
	default:
		return false
	}
}

// BackendFault reports whether the failure says the backend itself is
// unhealthy, as opposed to a bad request or an unhelpful model answer.
func (f *Failure) BackendFault() bool {
	switch f.Kind {
	case KindNetwork, KindTimeout, KindInvalidEnvelope:
		return true
	case KindHTTPStatus:
		return f.StatusCode >= 500
	default:
		return false
	}
}

// AppError converts f for rendering at the service boundary.
func (f *Failure) AppError() *apperrors.AppError {
	backend := f.Provider
	if backend == "" {
		backend = "llm"
	}

	var e *apperrors.AppError
	switch f.Kind {
	case KindNetwork:
		e = apperrors.ConnectionFailed(backend)
	case KindTimeout:
		e = apperrors.Timeout("completion")
	case KindCanceled:
		e = apperrors.Canceled("completion")
	case KindHTTPStatus:
		if f.StatusCode == http.StatusTooManyRequests {
			e = apperrors.RateLimited()
		} else {
			e = apperrors.ExternalServiceError(backend, nil)
			e.Retryable = f.Retryable()
		}
		e.WithDetail("status", f.StatusCode)
	case KindInvalidEnvelope:
		e = apperrors.InvalidEnvelope(backend)
	case KindEmptyResponse:
		e = apperrors.EmptyResponse(backend)
	case KindNoJSONFound:
		e = apperrors.NoJSONFound(backend)
	case KindMalformedJSON:
		e = apperrors.MalformedJSON(backend)
	case KindUnknownEndpoint:
		e = apperrors.UnknownEndpoint(f.Endpoint)
	case KindInvalidRequest:
		msg := "invalid completion request"
		if f.Err != nil {
			msg = f.Err.Error()
		}
		e = apperrors.Validation(msg)
	default:
		e = apperrors.Internal(nil)
	}

	e.WithCause(f).WithDetail("kind", string(f.Kind))
	if f.Raw != "" {
		e.WithDetail("raw", f.Raw)
	}
	if f.Span != "" {
		e.WithDetail("span", f.Span)
	}
	return e
}

// AsFailure extracts the *Failure from err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// KindOf returns err's failure kind, or "" when err is not a *Failure.
func KindOf(err error) FailureKind {
	if f, ok := AsFailure(err); ok {
		return f.Kind
	}
	return ""
}

func IsTimeout(err error) bool       { return KindOf(err) == KindTimeout }
func IsNetwork(err error) bool       { return KindOf(err) == KindNetwork }
func IsNoJSONFound(err error) bool   { return KindOf(err) == KindNoJSONFound }
func IsMalformedJSON(err error) bool { return KindOf(err) == KindMalformedJSON }

// IsRetryable reports whether err is a retryable *Failure.
func IsRetryable(err error) bool {
	f, ok := AsFailure(err)
	return ok && f.Retryable()
}

// IsBackendFault reports whether err is a *Failure blaming the backend.
func IsBackendFault(err error) bool {
	f, ok := AsFailure(err)
	return ok && f.BackendFault()
}

// TransportFailure classifies an error from an httpclient or rest call made
// by the named provider.
func TransportFailure(providerName string, err error) *Failure {
	f := &Failure{Provider: providerName, Err: err}

	var decodeErr *rest.DecodeError
	if errors.As(err, &decodeErr) {
		f.Kind = KindInvalidEnvelope
		f.Raw = string(decodeErr.Body)
		return f
	}

	if he, ok := httpclient.AsError(err); ok {
		switch {
		case he.Code == httpclient.ErrCodeTimeout:
			f.Kind = KindTimeout
		case he.Code == httpclient.ErrCodeCanceled:
			f.Kind = KindCanceled
		case he.StatusCode != 0:
			f.Kind = KindHTTPStatus
			f.StatusCode = he.StatusCode
			f.Raw = string(he.Body)
		default:
			f.Kind = KindNetwork
		}
		return f
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		f.Kind = KindTimeout
	case errors.Is(err, context.Canceled):
		f.Kind = KindCanceled
	default:
		f.Kind = KindNetwork
	}
	return f
}
