package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"

	apperrors "github.com/kbukum/portalgpt/errors"
	"github.com/kbukum/portalgpt/logger"
	"github.com/kbukum/portalgpt/observability"
)

func newTestServer(t *testing.T, checker func(context.Context) map[string]bool) *Server {
	t.Helper()
	cfg := Config{Host: "127.0.0.1"}
	cfg.ApplyDefaults()
	cfg.Port = 0
	srv := New(cfg, logger.NewDefault("test"))
	srv.ApplyMiddleware(nil)
	srv.RegisterDefaultEndpoints("portalgpt", checker)
	return srv
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return rr
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		avail  map[string]bool
		code   int
		status observability.HealthStatus
	}{
		{"all up", map[string]bool{"ollama": true, "openai": true}, http.StatusOK, observability.HealthStatusUp},
		{"one down", map[string]bool{"ollama": false, "openai": true}, http.StatusOK, observability.HealthStatusDegraded},
		{"all down", map[string]bool{"ollama": false}, http.StatusServiceUnavailable, observability.HealthStatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(context.Context) map[string]bool { return tt.avail })
			rr := get(t, srv.Handler(), "/health")
			if rr.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rr.Code)
			}
			var body observability.ServiceHealth
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.status || body.Service != "portalgpt" || len(body.Components) != len(tt.avail) {
				t.Errorf("unexpected health %+v", body)
			}
			if body.Components[0].Name != "ollama" {
				t.Errorf("expected components sorted by name, got %+v", body.Components)
			}
		})
	}
}

func TestVersionAndLiveness(t *testing.T) {
	srv := newTestServer(t, nil)
	if rr := get(t, srv.Handler(), "/alive"); rr.Code != http.StatusOK {
		t.Errorf("expected 200 from /alive, got %d", rr.Code)
	}
	rr := get(t, srv.Handler(), "/version")
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["version"] == nil {
		t.Errorf("unexpected version body %s", rr.Body.String())
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("expected handler-level middleware to run")
	}
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/app", func(c *gin.Context) { RespondWithError(c, apperrors.NoJSONFound("ollama")) })
	engine.GET("/plain", func(c *gin.Context) { RespondWithError(c, errors.New("boom")) })
	engine.GET("/ok", func(c *gin.Context) { RespondOK(c, map[string]int{"n": 1}) })

	if rr := get(t, engine, "/app"); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rr.Code)
	}
	if rr := get(t, engine, "/plain"); rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
	if rr := get(t, engine, "/ok"); rr.Body.String() != `{"data":{"n":1}}` {
		t.Errorf("unexpected envelope %s", rr.Body.String())
	}
}

func TestRespondWithError_RequestIDAndRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), "req-42"))
	})
	engine.GET("/busy", func(c *gin.Context) { RespondWithError(c, apperrors.ServiceUnavailable("completions")) })
	engine.GET("/bad", func(c *gin.Context) { RespondWithError(c, apperrors.MalformedJSON("ollama")) })

	rr := get(t, engine, "/busy")
	if rr.Code != http.StatusServiceUnavailable || rr.Header().Get("Retry-After") != "1" {
		t.Errorf("expected 503 with Retry-After, got %d %q", rr.Code, rr.Header().Get("Retry-After"))
	}
	var body ErrorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RequestID != "req-42" || body.Error.Code == "" {
		t.Errorf("unexpected error body %s", rr.Body.String())
	}

	if rr := get(t, engine, "/bad"); rr.Header().Get("Retry-After") != "" {
		t.Errorf("expected no Retry-After for a model output failure, got %q", rr.Header().Get("Retry-After"))
	}
}

func TestStartStop_ServesH2C(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		if err := srv.Stop(ctx); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()

	client := &http.Client{Transport: &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}}
	resp, err := client.Get("http://" + srv.Addr() + "/alive")
	if err != nil {
		t.Fatalf("h2c request failed: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.ProtoMajor != 2 || resp.StatusCode != http.StatusOK {
		t.Errorf("expected HTTP/2 200, got %s %d", resp.Proto, resp.StatusCode)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Port: 70000}
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid port to be rejected")
	}
	cfg = Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
