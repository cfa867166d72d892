package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		Host: HostConfig{BaseURL: "https://ci.example.com/api/v4"},
		Bus: BusConfig{
			StoreID:           "42",
			PrimaryPackage:    "releases",
			QuarantinePackage: "quarantine",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	if cfg.Orchestrator.Name != "convoy" {
		t.Errorf("expected default orchestrator name, got %q", cfg.Orchestrator.Name)
	}
	if cfg.Retry.MaxRetries != 5 {
		t.Errorf("expected default max_retries 5, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.Delay != 2*time.Second {
		t.Errorf("expected default delay 2s, got %v", cfg.Retry.Delay)
	}
	if cfg.Seal.Algorithm != "aes-256-gcm" {
		t.Errorf("expected default seal algorithm, got %q", cfg.Seal.Algorithm)
	}
	if cfg.Host.Timeout != 30*time.Second {
		t.Errorf("expected default host timeout, got %v", cfg.Host.Timeout)
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := validConfig()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing host url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Host.BaseURL = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for missing host.base_url")
		}
	})

	t.Run("missing store id", func(t *testing.T) {
		cfg := validConfig()
		cfg.Bus.StoreID = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for missing bus.store_id")
		}
	})

	t.Run("same primary and quarantine package", func(t *testing.T) {
		cfg := validConfig()
		cfg.Bus.QuarantinePackage = cfg.Bus.PrimaryPackage
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error when packages collide")
		}
	})

	t.Run("bad seal algorithm", func(t *testing.T) {
		cfg := validConfig()
		cfg.Seal.Algorithm = "rot13"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for unknown seal algorithm")
		}
	})
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "convoy.yml")
	yamlContent := `
orchestrator:
  name: convoy-ci
  url: https://ci.example.com/orchestrator
host:
  base_url: https://ci.example.com/api/v4
  token: secret
retry:
  max_retries: 3
  delay: 1s
bus:
  store_id: "7"
  primary_package: release-bundles
  quarantine_package: quarantine-bundles
seal:
  enabled: true
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Orchestrator.Name != "convoy-ci" {
		t.Errorf("expected orchestrator name from file, got %q", cfg.Orchestrator.Name)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("expected max_retries 3, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.Delay != time.Second {
		t.Errorf("expected delay 1s, got %v", cfg.Retry.Delay)
	}
	if !cfg.Seal.Enabled {
		t.Error("expected seal enabled")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "convoy.yml")
	yamlContent := `
host:
  base_url: https://ci.example.com/api/v4
bus:
  store_id: "7"
  primary_package: release-bundles
  quarantine_package: quarantine-bundles
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONVOY_HOST_TOKEN", "env-token")
	cfg, err := Load(WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Host.Token != "env-token" {
		t.Errorf("expected token from env, got %q", cfg.Host.Token)
	}
}

func TestLoadInvalidConfigFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "convoy.yml")
	// quarantine equals primary, which validation must reject
	yamlContent := `
host:
  base_url: https://ci.example.com/api/v4
bus:
  store_id: "7"
  primary_package: bundles
  quarantine_package: bundles
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(WithConfigFile(path)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{}}
	_, err := Load(WithFileSystem(fs))
	// No config file and no env: host.base_url is required, so Load fails
	// at validation, not at file resolution.
	if err == nil {
		t.Fatal("expected validation error with empty config")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config error, got %v", err)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }
