package config

import (
	"os"
	"testing"
)

func TestDefaultConfigIsWellFormed(t *testing.T) {
	cfg := DefaultConfig()
	if len(cfg.PMs) == 0 {
		t.Fatalf("expected at least one PM class in defaults")
	}
	if cfg.Policy.Class == "" {
		t.Fatalf("expected a default policy class")
	}
	if cfg.Policy.Headroom <= 0 || cfg.Policy.IdleTicks <= 0 {
		t.Fatalf("expected positive default policy constants")
	}
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	os.Setenv("VCSIM_POLICY_CLASS", "pooling")
	os.Setenv("VCSIM_POLICY_HEADROOM", "7")
	os.Setenv("VCSIM_METRICS_ENABLED", "false")
	defer func() {
		os.Unsetenv("VCSIM_POLICY_CLASS")
		os.Unsetenv("VCSIM_POLICY_HEADROOM")
		os.Unsetenv("VCSIM_METRICS_ENABLED")
	}()

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Policy.Class != "pooling" {
		t.Fatalf("expected policy class override to apply, got %q", cfg.Policy.Class)
	}
	if cfg.Policy.Headroom != 7 {
		t.Fatalf("expected headroom override to apply, got %d", cfg.Policy.Headroom)
	}
	if cfg.Metrics.Enabled {
		t.Fatalf("expected metrics.enabled override to apply")
	}
}

func TestLoadFromFileLayersOverDefaults(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "vcsim-*.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = f.WriteString("policy:\n  class: vm_creation_priority\n  random_seed: 99\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Close()

	cfg, err := LoadFromFile(f.Name())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Policy.Class != "vm_creation_priority" || cfg.Policy.RandomSeed != 99 {
		t.Fatalf("expected file overrides to apply, got %+v", cfg.Policy)
	}
	if len(cfg.PMs) == 0 {
		t.Fatalf("expected PM defaults to survive a file that doesn't mention pms")
	}
}

func TestLoadFromFileMissingPath(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	if err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
