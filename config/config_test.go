package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
app_name: apphost-test
run_mode: development
runtime:
  max_packages: 16
  script_timeout: 10s
metrics:
  enabled: true
  storage:
    type: memory
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.AppName != "apphost-test" {
		t.Errorf("unexpected app name %q", cfg.AppName)
	}
	if !cfg.IsDevelopmentMode() {
		t.Error("expected development mode")
	}
	if cfg.Runtime.MaxPackages != 16 || cfg.Runtime.ScriptTimeout != "10s" {
		t.Errorf("unexpected runtime config: %+v", cfg.Runtime)
	}
	// defaults fill the gaps
	if cfg.Runtime.DispatchTimeout != "120s" {
		t.Errorf("expected default dispatch timeout, got %q", cfg.Runtime.DispatchTimeout)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Storage.Type != "memory" {
		t.Errorf("unexpected metrics config: %+v", cfg.Metrics)
	}
	if cfg.Metrics.FlushInterval != "30s" || cfg.Metrics.BatchSize != 100 {
		t.Errorf("metrics defaults not applied: %+v", cfg.Metrics)
	}
}

func TestRuntimeValidate(t *testing.T) {
	valid := &Runtime{MaxPackages: 0, ScriptTimeout: "30s", DispatchTimeout: "2m"}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid runtime config: %v", err)
	}

	if err := (&Runtime{MaxPackages: -1}).Validate(); err == nil {
		t.Error("negative max_packages must be rejected")
	}
	if err := (&Runtime{ScriptTimeout: "sometime"}).Validate(); err == nil {
		t.Error("unparseable timeout must be rejected")
	}
}

func TestMetricsValidate(t *testing.T) {
	disabled := &Metrics{Enabled: false, FlushInterval: "garbage"}
	if err := disabled.Validate(); err != nil {
		t.Errorf("disabled metrics skip validation: %v", err)
	}

	redisNoAddr := &Metrics{
		Enabled:       true,
		FlushInterval: "30s",
		BatchSize:     100,
		Retention:     "168h",
		Storage:       &MetricsStorage{Type: "redis"},
	}
	if err := redisNoAddr.Validate(); err == nil {
		t.Error("redis storage without address must be rejected")
	}

	unknown := &Metrics{
		Enabled:       true,
		FlushInterval: "30s",
		BatchSize:     100,
		Retention:     "168h",
		Storage:       &MetricsStorage{Type: "etcd"},
	}
	if err := unknown.Validate(); err == nil {
		t.Error("unknown storage type must be rejected")
	}
}
