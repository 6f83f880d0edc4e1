package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	LLM           struct {
		Preferred string        `mapstructure:"preferred"`
		Timeout   time.Duration `mapstructure:"timeout"`
	} `mapstructure:"llm"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestServiceConfig_ApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected logging defaults, got %+v", cfg.Logging)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, `
name: portalgpt
environment: staging
llm:
  preferred: ollama
  timeout: 45s
`)

	var cfg testConfig
	if err := LoadConfig("portalgpt", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "portalgpt" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config: %+v", cfg.ServiceConfig)
	}
	if cfg.LLM.Preferred != "ollama" {
		t.Errorf("expected preferred 'ollama', got %q", cfg.LLM.Preferred)
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", cfg.LLM.Timeout)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "llm:\n  preferred: ollama\n")
	t.Setenv("LLM_PREFERRED", "openai")

	var cfg testConfig
	if err := LoadConfig("portalgpt", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.LLM.Preferred != "openai" {
		t.Errorf("expected env override 'openai', got %q", cfg.LLM.Preferred)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	var cfg testConfig
	if err := LoadConfig("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml")); err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "llm: [unclosed\n")

	var cfg testConfig
	if err := LoadConfig("portalgpt", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected an error for unparseable config")
	}
}

func TestLoad_WatchReportsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "llm:\n  preferred: ollama\n")

	var (
		mu   sync.Mutex
		seen []string
	)
	changed := make(chan struct{}, 8)
	onChange := func(v *viper.Viper, _ fsnotify.Event) {
		mu.Lock()
		seen = append(seen, v.GetString("llm.preferred"))
		mu.Unlock()
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	var cfg testConfig
	if _, err := Load("portalgpt", &cfg, WithConfigFile(path), WithWatch(onChange)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	writeFile(t, path, "llm:\n  preferred: openai\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-changed:
			mu.Lock()
			ok := slices.Contains(seen, "openai")
			mu.Unlock()
			if ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for config change notification")
		}
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolver_SearchOrder(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/portalgpt/config.yml": true,
		"./config.yml":               true,
		"./.env":                     true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("portalgpt", LoaderConfig{})
	if files.ConfigFile != "./cmd/portalgpt/config.yml" {
		t.Errorf("expected cmd config to win, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected ./.env, got %q", files.EnvFile)
	}
}

func TestResolver_ExplicitPathsWin(t *testing.T) {
	resolver := &Resolver{FileSystem: &mockFS{files: map[string]bool{"./config.yml": true}}}
	files := resolver.ResolveFiles("portalgpt", LoaderConfig{ConfigFile: "/etc/p.yml", EnvFile: "/etc/p.env"})
	if files.ConfigFile != "/etc/p.yml" || files.EnvFile != "/etc/p.env" {
		t.Errorf("expected explicit paths, got %+v", files)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	variants := envKeyVariants("LLM_RETRY_MAX_ATTEMPTS")
	for _, want := range []string{"llm_retry_max_attempts", "llm.retry.max.attempts", "llm.retry.max_attempts", "llm.retry_max_attempts"} {
		if !slices.Contains(variants, want) {
			t.Errorf("expected variant %q in %v", want, variants)
		}
	}
	if got := envKeyVariants("HOME"); len(got) != 1 || got[0] != "home" {
		t.Errorf("expected single variant for HOME, got %v", got)
	}
}

func TestDecode(t *testing.T) {
	var out struct {
		Endpoint  string        `mapstructure:"endpoint"`
		MaxTokens int           `mapstructure:"max_tokens"`
		Timeout   time.Duration `mapstructure:"timeout"`
		Fallbacks []string      `mapstructure:"fallbacks"`
	}
	err := Decode(map[string]any{
		"endpoint":   "ollama_local",
		"max_tokens": "512",
		"timeout":    "45s",
		"fallbacks":  "openai,ollama",
	}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Endpoint != "ollama_local" || out.MaxTokens != 512 || out.Timeout != 45*time.Second {
		t.Errorf("unexpected decode result: %+v", out)
	}
	if !slices.Equal(out.Fallbacks, []string{"openai", "ollama"}) {
		t.Errorf("unexpected fallbacks: %v", out.Fallbacks)
	}

	if err := Decode(map[string]any{"timeout": "soon"}, &out); err == nil {
		t.Error("expected an error for an unparseable duration")
	}
}
