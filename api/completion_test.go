package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/portalgpt/errors"
	"github.com/kbukum/portalgpt/llm"
	"github.com/kbukum/portalgpt/logger"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeCompleter struct {
	mu      sync.Mutex
	calls   []string
	last    llm.CompletionRequest
	result  llm.Result
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeCompleter) record(backend string, req llm.CompletionRequest) (llm.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, backend)
	f.last = req
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.CompletionRequest) (llm.Result, error) {
	return f.record("", req)
}

func (f *fakeCompleter) CompleteWith(_ context.Context, backend string, req llm.CompletionRequest) (llm.Result, error) {
	return f.record(backend, req)
}

func newEngine(c Completer, maxConcurrent int) *gin.Engine {
	engine := gin.New()
	NewCompletionHandler(c, maxConcurrent, logger.NewDefault("test")).Register(engine)
	return engine
}

func post(engine http.Handler, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, CompletionsPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errors.ErrorBody {
	t.Helper()
	var resp errors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("not an error body: %s", rr.Body.String())
	}
	return resp.Error
}

func TestCompletion_Success(t *testing.T) {
	fc := &fakeCompleter{result: llm.Result{"answer": json.Number("42")}}
	rr := post(newEngine(fc, 4), `{
		"prompt": "Return {\"answer\": 42}",
		"schema": {"answer": "integer"},
		"model": "mistral",
		"temperature": 0,
		"max_tokens": 64,
		"timeout_ms": 1500,
		"options": {"format": "json"}
	}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != `{"data":{"answer":42}}` {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
	req := fc.last
	if req.Model != "mistral" || req.MaxTokens != 64 || req.Timeout != 1500*time.Millisecond {
		t.Errorf("unexpected request %+v", req)
	}
	if req.Temperature == nil || *req.Temperature != 0 {
		t.Errorf("expected explicit zero temperature to survive, got %v", req.Temperature)
	}
	if req.Options["format"] != "json" || req.Schema["answer"] != "integer" {
		t.Errorf("expected options and schema to pass through, got %+v", req)
	}
	if fc.calls[0] != "" {
		t.Errorf("expected orchestrated call, got backend %q", fc.calls[0])
	}
}

func TestCompletion_NamedBackend(t *testing.T) {
	fc := &fakeCompleter{result: llm.Result{}}
	post(newEngine(fc, 4), `{"prompt": "hi", "backend": "openai"}`)
	if len(fc.calls) != 1 || fc.calls[0] != "openai" {
		t.Errorf("expected CompleteWith(openai), got %v", fc.calls)
	}
}

func TestCompletion_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `prompt=hi`},
		{"blank prompt", `{"prompt": "   "}`},
		{"temperature range", `{"prompt": "hi", "temperature": 2.5}`},
		{"negative tokens", `{"prompt": "hi", "max_tokens": -1}`},
		{"negative timeout", `{"prompt": "hi", "timeout_ms": -5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{}
			rr := post(newEngine(fc, 4), tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if code := decodeError(t, rr).Code; code != errors.ErrCodeInvalidInput {
				t.Errorf("expected INVALID_INPUT, got %s", code)
			}
			if len(fc.calls) != 0 {
				t.Error("invalid body must not reach the orchestrator")
			}
		})
	}
}

func TestCompletion_FailureMapping(t *testing.T) {
	text := "Sure! {\"a\": 1,}"
	tests := []struct {
		name   string
		err    error
		status int
		code   errors.ErrorCode
		kind   string
	}{
		{"malformed", &llm.Failure{Kind: llm.KindMalformedJSON, Provider: "ollama", Raw: text, Span: `{"a": 1,}`}, http.StatusUnprocessableEntity, errors.ErrCodeMalformedJSON, "malformed_json"},
		{"no json", &llm.Failure{Kind: llm.KindNoJSONFound, Provider: "ollama", Raw: "nope"}, http.StatusUnprocessableEntity, errors.ErrCodeNoJSONFound, "no_json_found"},
		{"timeout", &llm.Failure{Kind: llm.KindTimeout, Provider: "ollama"}, http.StatusGatewayTimeout, errors.ErrCodeTimeout, "timeout"},
		{"network", &llm.Failure{Kind: llm.KindNetwork, Provider: "ollama"}, http.StatusBadGateway, errors.ErrCodeConnectionFailed, "network"},
		{"unknown endpoint", &llm.Failure{Kind: llm.KindUnknownEndpoint, Provider: "ollama", Endpoint: "ollama_local"}, http.StatusInternalServerError, errors.ErrCodeUnknownEndpoint, "unknown_endpoint"},
		{"unknown backend", llm.ErrUnknownBackend, http.StatusNotFound, errors.ErrCodeNotFound, ""},
		{"no backends", llm.ErrNoBackends, http.StatusServiceUnavailable, errors.ErrCodeServiceUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := post(newEngine(&fakeCompleter{err: tt.err}, 4), `{"prompt": "hi"}`)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			body := decodeError(t, rr)
			if body.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, body.Code)
			}
			if tt.kind != "" && body.Details["kind"] != tt.kind {
				t.Errorf("expected kind %s, got %v", tt.kind, body.Details["kind"])
			}
		})
	}

	rr := post(newEngine(&fakeCompleter{err: tests[0].err}, 4), `{"prompt": "hi"}`)
	body := decodeError(t, rr)
	if body.Details["raw"] != text || body.Details["span"] != `{"a": 1,}` {
		t.Errorf("expected raw text and span in details, got %v", body.Details)
	}
}

func TestCompletion_BulkheadRejectsExcess(t *testing.T) {
	fc := &fakeCompleter{result: llm.Result{}, release: make(chan struct{}), started: make(chan struct{}, 1)}
	engine := newEngine(fc, 1)

	done := make(chan int)
	go func() { done <- post(engine, `{"prompt": "slow"}`).Code }()
	<-fc.started

	rr := post(engine, `{"prompt": "second"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while the slot is taken, got %d", rr.Code)
	}
	close(fc.release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("expected first request to succeed, got %d", code)
	}
}
