package storage

import (
	"context"
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"disabled", Config{}, ""},
		{"local", Config{Provider: "local", BasePath: "/tmp/x"}, ""},
		{"local without path", Config{Provider: "local"}, "base_path"},
		{"s3", Config{Provider: "S3", Bucket: "b"}, ""},
		{"s3 without bucket", Config{Provider: "s3"}, "bucket"},
		{"s3 half credentials", Config{Provider: "s3", Bucket: "b", AccessKey: "a"}, "secret_key"},
		{"unknown", Config{Provider: "gcs"}, "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			err := tt.cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestConfig_DefaultsRegionForS3(t *testing.T) {
	cfg := Config{Provider: "s3", Bucket: "b"}
	cfg.ApplyDefaults()
	if cfg.Region != DefaultRegion {
		t.Errorf("expected %s, got %q", DefaultRegion, cfg.Region)
	}
}

func TestConfig_Key(t *testing.T) {
	if got := (&Config{}).Key("d.jsonl"); got != "d.jsonl" {
		t.Errorf("unexpected key %q", got)
	}
	if got := (&Config{Prefix: "london/"}).Key("d.jsonl"); got != "london/d.jsonl" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestNew_UnlinkedProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "s3", Bucket: "b"}, nil)
	if err == nil || !strings.Contains(err.Error(), "not linked") {
		t.Errorf("expected unlinked provider error, got %v", err)
	}
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Error("expected an error when storage is disabled")
	}
}
