package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Defaults come from the YAML file;
// deployment-specific values (database URL, port, log level) may be
// overridden through environment variables.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// PGURL is optional: without it, run persistence is disabled and the
	// service operates purely in-memory.
	PGURL string `yaml:"pg_url"`

	Cache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Enrichment struct {
		MaxConcurrent  int           `yaml:"max_concurrent"`
		ItemTimeout    time.Duration `yaml:"item_timeout"`
		OverallTimeout time.Duration `yaml:"overall_timeout"`
		MaxAttempts    int           `yaml:"max_attempts"`
		BackoffBase    time.Duration `yaml:"backoff_base"`
		BackoffMax     time.Duration `yaml:"backoff_max"`
		FuzzyThreshold float64       `yaml:"fuzzy_threshold"`
		OverlapRatio   float64       `yaml:"overlap_ratio"`
		TopHoldings    int           `yaml:"top_holdings"`
	} `yaml:"enrichment"`

	Providers struct {
		NAVAllURL string `yaml:"navall_url"`
		MFAPIURL  string `yaml:"mfapi_url"`
		SearchURL string `yaml:"search_url"`
	} `yaml:"providers"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

func defaults() *Config {
	cfg := &Config{
		Port:     "8080",
		LogLevel: "info",
	}
	cfg.Cache.Enabled = true
	cfg.Cache.TTL = time.Hour
	cfg.Enrichment.MaxConcurrent = 5
	cfg.Enrichment.ItemTimeout = 30 * time.Second
	cfg.Enrichment.OverallTimeout = 120 * time.Second
	cfg.Enrichment.MaxAttempts = 3
	cfg.Enrichment.BackoffBase = 500 * time.Millisecond
	cfg.Enrichment.BackoffMax = 5 * time.Second
	cfg.Enrichment.FuzzyThreshold = 0.35
	cfg.Enrichment.OverlapRatio = 0.7
	cfg.Enrichment.TopHoldings = 10
	cfg.CORS.AllowedOrigins = []string{"http://localhost:8080"}
	return cfg
}

// Load reads configuration: a .env file if present, then the YAML file named
// by MFENRICH_CONFIG (default config.yaml, skipped when absent), then
// environment variable overrides.
func Load() (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg := defaults()

	path := os.Getenv("MFENRICH_CONFIG")
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if v := os.Getenv("PG_URL"); v != "" {
		cfg.PGURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Enrichment.MaxConcurrent < 1 {
		return fmt.Errorf("enrichment.max_concurrent must be at least 1, got %d", c.Enrichment.MaxConcurrent)
	}
	if c.Enrichment.MaxAttempts < 1 {
		return fmt.Errorf("enrichment.max_attempts must be at least 1, got %d", c.Enrichment.MaxAttempts)
	}
	if c.Enrichment.FuzzyThreshold < 0 || c.Enrichment.FuzzyThreshold > 1 {
		return fmt.Errorf("enrichment.fuzzy_threshold must be in [0,1], got %g", c.Enrichment.FuzzyThreshold)
	}
	if c.Enrichment.OverlapRatio <= 0 || c.Enrichment.OverlapRatio > 1 {
		return fmt.Errorf("enrichment.overlap_ratio must be in (0,1], got %g", c.Enrichment.OverlapRatio)
	}
	return nil
}
