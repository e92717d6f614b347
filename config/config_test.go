package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MFENRICH_CONFIG", "PG_URL", "PORT", "LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	// Run from a temp dir so no stray config.yaml or .env is picked up.
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != time.Hour {
		t.Errorf("cache defaults wrong: %+v", cfg.Cache)
	}
	if cfg.Enrichment.MaxConcurrent != 5 || cfg.Enrichment.FuzzyThreshold != 0.35 {
		t.Errorf("enrichment defaults wrong: %+v", cfg.Enrichment)
	}
	if cfg.Enrichment.OverallTimeout != 120*time.Second {
		t.Errorf("OverallTimeout = %v", cfg.Enrichment.OverallTimeout)
	}
	if cfg.PGURL != "" {
		t.Errorf("PGURL = %q, want unset", cfg.PGURL)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "test.yaml")
	body := `
port: "9090"
log_level: debug
cache:
  enabled: false
  ttl: 30m
enrichment:
  max_concurrent: 8
  item_timeout: 10s
  overall_timeout: 60s
  max_attempts: 2
  backoff_base: 250ms
  backoff_max: 2s
  fuzzy_threshold: 0.5
  overlap_ratio: 0.6
  top_holdings: 15
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MFENRICH_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Cache.Enabled || cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Enrichment.MaxConcurrent != 8 || cfg.Enrichment.FuzzyThreshold != 0.5 {
		t.Errorf("enrichment = %+v", cfg.Enrichment)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("PG_URL", "postgres://localhost/test")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7000" || cfg.PGURL != "postgres://localhost/test" || cfg.LogLevel != "warn" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("MFENRICH_CONFIG", "/nonexistent/config.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("an explicitly named missing config file must error")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("enrichment:\n  fuzzy_threshold: 2.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MFENRICH_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("out-of-range fuzzy_threshold must error")
	}
}
