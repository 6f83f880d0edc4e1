package security

import (
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeCA saves the test server's certificate as a PEM bundle.
func writeCA(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ca.pem")
	block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(path, block, 0o600); err != nil {
		t.Fatalf("write CA: %v", err)
	}
	return path
}

func TestTLSConfig_DisabledBuildsNil(t *testing.T) {
	var nilCfg *TLSConfig
	for _, c := range []*TLSConfig{nilCfg, {}} {
		cfg, err := c.Build()
		if err != nil || cfg != nil {
			t.Errorf("expected nil config, got %v, %v", cfg, err)
		}
	}
}

func TestTLSConfig_TrustsCAFile(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	plain := &http.Client{}
	if _, err := plain.Get(srv.URL); err == nil {
		t.Fatal("expected the system roots to reject the test certificate")
	}

	tlsCfg, err := (&TLSConfig{CAFile: writeCA(t, srv)}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: tlsCfg}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("expected the CA file to be trusted: %v", err)
	}
	_ = resp.Body.Close()
}

func TestTLSConfig_Errors(t *testing.T) {
	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cfg  TLSConfig
		want string
	}{
		{"cert without key", TLSConfig{CertFile: "client.pem"}, "set together"},
		{"missing CA", TLSConfig{CAFile: "/nonexistent/ca.pem"}, "read CA file"},
		{"unparseable CA", TLSConfig{CAFile: garbage}, "no certificates"},
		{"missing client cert", TLSConfig{CertFile: "/nonexistent/c.pem", KeyFile: "/nonexistent/k.pem"}, "client certificate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Build()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
