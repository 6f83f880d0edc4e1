package httpclient

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{401, ErrCodeAuth, false},
		{403, ErrCodeAuth, false},
		{404, ErrCodeNotFound, false},
		{429, ErrCodeRateLimit, true},
		{400, ErrCodeValidation, false},
		{500, ErrCodeServer, true},
		{503, ErrCodeServer, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := ClassifyStatusCode(tt.status, []byte("body"))
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, err.Code)
			}
			if err.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v", tt.retryable)
			}
			if err.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, err.StatusCode)
			}
		})
	}
	if ClassifyStatusCode(201, nil) != nil {
		t.Error("expected nil for 2xx")
	}
}

func TestErrorHelpers_Wrapped(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("ollama: %w", NewConnectionError(cause))
	if !IsConnection(err) || IsTimeout(err) {
		t.Error("expected wrapped connection error to classify")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if IsStatus(err) {
		t.Error("connection errors carry no status")
	}
	if e, ok := AsError(err); !ok || e.Code != ErrCodeConnection {
		t.Errorf("expected AsError to find connection error, got %v", e)
	}
}

func TestErrorCode_String(t *testing.T) {
	if ErrCodeCanceled.String() != "canceled" || ErrorCode(99).String() != "unknown" {
		t.Error("unexpected code names")
	}
}
