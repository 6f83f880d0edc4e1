package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kbukum/portalgpt/endpoint"
	"github.com/kbukum/portalgpt/llm"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func replyWith(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"model": "llama2:13b", "response": text, "done": true})
	}
}

func newProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	p, err := New(endpoint.NewStatic(map[string]endpoint.Descriptor{
		DefaultEndpoint: {BaseURL: baseURL},
	}), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func request(prompt string) llm.CompletionRequest {
	return llm.CompletionRequest{Prompt: prompt, Schema: map[string]any{"a": "number"}}
}

func TestGetCompletion_SendsGenerateRequest(t *testing.T) {
	var body map[string]any
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		replyWith(`{"a": 1}`)(w, r)
	})

	p := newProvider(t, srv.URL)
	req := request("rate this")
	req.Options = map[string]any{"format": "json", "top_k": 20}
	if _, err := p.GetCompletion(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if body["model"] != llm.DefaultModel || body["prompt"] != "rate this" || body["stream"] != false {
		t.Errorf("unexpected body: %v", body)
	}
	if body["format"] != "json" {
		t.Errorf("expected format at top level, got %v", body)
	}
	opts, _ := body["options"].(map[string]any)
	if opts["temperature"] != llm.DefaultTemperature || opts["num_predict"] != float64(llm.DefaultMaxTokens) {
		t.Errorf("unexpected options: %v", opts)
	}
	if opts["top_k"] != float64(20) {
		t.Errorf("expected top_k merged into options, got %v", opts)
	}
	if _, ok := opts["format"]; ok {
		t.Error("format should not be duplicated into options")
	}
}

func TestGetCompletion_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
		kind llm.FailureKind
	}{
		{name: "fenced json", text: "```json\n{\"a\": 1, \"b\": \"x\"}\n```", want: map[string]string{"a": "1", "b": "x"}},
		{name: "prose wrapped", text: `Sure! Here is the result: {"a": 1} Hope that helps.`, want: map[string]string{"a": "1"}},
		{name: "no json", text: "I cannot comply.", kind: llm.KindNoJSONFound},
		{name: "trailing comma", text: `{"a": 1,}`, kind: llm.KindMalformedJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newBackend(t, replyWith(tt.text))
			res, err := newProvider(t, srv.URL).GetCompletion(context.Background(), request("p"))

			if tt.kind != "" {
				f, ok := llm.AsFailure(err)
				if !ok || f.Kind != tt.kind {
					t.Fatalf("expected %s failure, got %v", tt.kind, err)
				}
				if f.Raw != tt.text || f.Provider != ProviderName {
					t.Errorf("expected raw text and provider on failure, got %+v", f)
				}
				if res != nil {
					t.Errorf("expected nil result, got %v", res)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res) != len(tt.want) {
				t.Fatalf("unexpected result %v", res)
			}
			for k, v := range tt.want {
				if got := res[k]; got == nil || toString(got) != v {
					t.Errorf("key %s: expected %s, got %v", k, v, got)
				}
			}
		})
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case json.Number:
		return x.String()
	case string:
		return x
	default:
		return ""
	}
}

func TestGetCompletion_Timeout(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
		replyWith(`{"a": 1}`)(w, r)
	})

	req := request("p")
	req.Timeout = 10 * time.Millisecond
	start := time.Now()
	res, err := newProvider(t, srv.URL).GetCompletion(context.Background(), req)

	if !llm.IsTimeout(err) {
		t.Fatalf("expected timeout failure, got %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %v", res)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("expected the call to end near its deadline, took %v", elapsed)
	}
	if !llm.IsRetryable(err) {
		t.Error("timeouts should be retryable")
	}
}

func TestGetCompletion_Canceled(t *testing.T) {
	disconnected := make(chan struct{})
	release := make(chan struct{})
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		// The server only notices a client disconnect once the body is read.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
			close(disconnected)
		case <-release:
		}
	})
	// Cleanups run last-in first-out, so the handler is released before
	// the server waits for it.
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := newProvider(t, srv.URL).GetCompletion(ctx, request("p"))
	if llm.KindOf(err) != llm.KindCanceled {
		t.Fatalf("expected canceled failure, got %v", err)
	}
	if llm.IsRetryable(err) {
		t.Error("canceled calls should not be retryable")
	}

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Error("expected the connection to be released after cancellation")
	}
}

func TestGetCompletion_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newProvider(t, url).GetCompletion(context.Background(), request("p"))
	if !llm.IsNetwork(err) {
		t.Fatalf("expected network failure, got %v", err)
	}
}

func TestGetCompletion_HTTPStatus(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"model not loaded"}`, tt.status)
			})
			_, err := newProvider(t, srv.URL).GetCompletion(context.Background(), request("p"))
			f, ok := llm.AsFailure(err)
			if !ok || f.Kind != llm.KindHTTPStatus || f.StatusCode != tt.status {
				t.Fatalf("expected HTTP %d failure, got %v", tt.status, err)
			}
			if f.Retryable() != tt.retryable {
				t.Errorf("expected retryable=%v", tt.retryable)
			}
		})
	}
}

func TestGetCompletion_InvalidEnvelope(t *testing.T) {
	for name, body := range map[string]string{
		"not json":         "<html>bad gateway</html>",
		"missing response": `{"model":"llama2:13b","done":true}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := newProvider(t, srv.URL).GetCompletion(context.Background(), request("p"))
			f, ok := llm.AsFailure(err)
			if !ok || f.Kind != llm.KindInvalidEnvelope {
				t.Fatalf("expected invalid envelope failure, got %v", err)
			}
			if f.Raw != body {
				t.Errorf("expected body in Raw, got %q", f.Raw)
			}
		})
	}
}

func TestGetCompletion_EmptyResponse(t *testing.T) {
	srv := newBackend(t, replyWith("  \n "))
	_, err := newProvider(t, srv.URL).GetCompletion(context.Background(), request("p"))
	if llm.KindOf(err) != llm.KindEmptyResponse {
		t.Fatalf("expected empty response failure, got %v", err)
	}
}

func TestGetCompletion_UnknownEndpoint(t *testing.T) {
	p, err := New(endpoint.NewStatic(nil), Config{Endpoint: "ollama_remote"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = p.GetCompletion(context.Background(), request("p"))
	f, ok := llm.AsFailure(err)
	if !ok || f.Kind != llm.KindUnknownEndpoint || f.Endpoint != "ollama_remote" {
		t.Fatalf("expected unknown endpoint failure, got %v", err)
	}
	if !errors.Is(err, endpoint.ErrUnknownEndpoint) {
		t.Error("expected the registry error in the chain")
	}
}

func TestGetCompletion_InvalidRequest(t *testing.T) {
	p := newProvider(t, "http://127.0.0.1:1")
	for name, req := range map[string]llm.CompletionRequest{
		"empty prompt":     {Prompt: "  "},
		"negative timeout": {Prompt: "p", Timeout: -time.Second},
		"temperature":      {Prompt: "p", Temperature: llm.Float(3)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := p.GetCompletion(context.Background(), req)
			if llm.KindOf(err) != llm.KindInvalidRequest {
				t.Errorf("expected invalid request failure, got %v", err)
			}
		})
	}
}

func TestGetCompletion_ResolvesEveryCall(t *testing.T) {
	first := newBackend(t, replyWith(`{"backend": "first"}`))
	second := newBackend(t, replyWith(`{"backend": "second"}`))

	registry := endpoint.NewWatched(map[string]endpoint.Descriptor{DefaultEndpoint: {BaseURL: first.URL}})
	p, err := New(registry, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := p.GetCompletion(context.Background(), request("p"))
	if err != nil || res["backend"] != "first" {
		t.Fatalf("unexpected result %v, %v", res, err)
	}

	registry.Reload(map[string]endpoint.Descriptor{DefaultEndpoint: {BaseURL: second.URL}})
	res, err = p.GetCompletion(context.Background(), request("p"))
	if err != nil || res["backend"] != "second" {
		t.Fatalf("expected reloaded endpoint to serve the next call, got %v, %v", res, err)
	}
}

func TestGetCompletion_DescriptorHeaders(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Tenant") != "gla" {
			t.Errorf("expected descriptor header, got %v", r.Header)
		}
		replyWith(`{"ok": true}`)(w, r)
	})
	p, err := New(endpoint.NewStatic(map[string]endpoint.Descriptor{
		DefaultEndpoint: {BaseURL: srv.URL, Headers: map[string]string{"X-Tenant": "gla"}},
	}), Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.GetCompletion(context.Background(), request("p")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsAvailable(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	})
	if !newProvider(t, srv.URL).IsAvailable(context.Background()) {
		t.Error("expected provider to be available")
	}

	p, _ := New(endpoint.NewStatic(nil), Config{})
	if p.IsAvailable(context.Background()) {
		t.Error("expected unresolvable endpoint to be unavailable")
	}
}

func TestFactory(t *testing.T) {
	registry := endpoint.NewStatic(map[string]endpoint.Descriptor{"gpu_box": {BaseURL: "http://gpu:11434"}})
	p, err := Factory(registry)(map[string]any{
		"endpoint":    "gpu_box",
		"model":       "mistral",
		"temperature": 0.2,
		"max_tokens":  512,
		"timeout":     "90s",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	op := p.(*Provider)
	if op.cfg.Endpoint != "gpu_box" {
		t.Errorf("unexpected endpoint %q", op.cfg.Endpoint)
	}
	if op.defaults.Model != "mistral" || op.defaults.Temperature != 0.2 || op.defaults.MaxTokens != 512 || op.defaults.Timeout != 90*time.Second {
		t.Errorf("unexpected defaults %+v", op.defaults)
	}
	if p.Name() != ProviderName {
		t.Errorf("unexpected name %q", p.Name())
	}
}
