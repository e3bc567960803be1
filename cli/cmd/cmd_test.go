package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xomify/xomify/config"
)

func TestBuildAdapter_None(t *testing.T) {
	a, err := buildAdapter(&config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Error("no adapter configured should yield nil")
	}
}

func TestBuildAdapter_WebhookRequiresURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.Adapter.Type = "webhook"
	if _, err := buildAdapter(cfg); err == nil {
		t.Error("webhook without URL should fail")
	}
}

func TestBuildAdapter_Webhook(t *testing.T) {
	cfg := &config.Config{}
	cfg.Adapter.Type = "webhook"
	cfg.Adapter.URL = "https://hooks.example.com/digest"
	a, err := buildAdapter(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == nil {
		t.Fatal("expected an adapter")
	}
	_ = a.Close()
}

func TestBuildAdapter_UnknownType(t *testing.T) {
	cfg := &config.Config{}
	cfg.Adapter.Type = "carrier-pigeon"
	if _, err := buildAdapter(cfg); err == nil {
		t.Error("unknown adapter type should fail")
	}
}

func TestRetriesOrDefault(t *testing.T) {
	if got := retriesOrDefault(nil, 3); got != 3 {
		t.Errorf("nil retries = %d, want default 3", got)
	}
	zero := 0
	if got := retriesOrDefault(&zero, 3); got != 0 {
		t.Errorf("explicit zero retries = %d, want 0", got)
	}
}

func TestBuildStore_Memory(t *testing.T) {
	st, backend, err := buildStore(context.Background(), &config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st == nil || backend != "memory" {
		t.Errorf("backend = %q", backend)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing config file should fail")
	}
}

func TestLoadConfig_ValidatesCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xomify.yaml")
	content := "store:\n  backend: memory\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.ApplyDefaults()
	err = cfg.Validate()
	if err == nil {
		t.Fatal("config without credentials should fail validation")
	}
	if !strings.Contains(err.Error(), "credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}
