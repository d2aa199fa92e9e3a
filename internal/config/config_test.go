package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
	if cfg.Scanner.Pacing != 150*time.Millisecond {
		t.Errorf("Expected 150ms ticker pacing, got %v", cfg.Scanner.Pacing)
	}
	if cfg.Flow.Pacing != 1100*time.Millisecond {
		t.Errorf("Expected 1.1s flow pacing, got %v", cfg.Flow.Pacing)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scanner.Workers != DefaultConfig().Scanner.Workers {
		t.Errorf("Expected default workers, got %d", cfg.Scanner.Workers)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
scanner:
  workers: 8
  pacing: 200ms
  universe: idx30
flow:
  base_url: http://flow.local
  days: 20
trend:
  min_score: 6
schedule:
  preset: oversold
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scanner.Workers != 8 || cfg.Scanner.Pacing != 200*time.Millisecond || cfg.Scanner.Universe != "idx30" {
		t.Errorf("Unexpected scanner config: %+v", cfg.Scanner)
	}
	if cfg.Flow.BaseURL != "http://flow.local" || cfg.Flow.Days != 20 {
		t.Errorf("Unexpected flow config: %+v", cfg.Flow)
	}
	// Untouched keys keep their defaults
	if cfg.Flow.Pacing != 1100*time.Millisecond {
		t.Errorf("Expected default flow pacing, got %v", cfg.Flow.Pacing)
	}
	if cfg.Trend.MinScore != 6 || cfg.Schedule.Preset != "oversold" {
		t.Errorf("Unexpected trend/schedule: %+v %+v", cfg.Trend, cfg.Schedule)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("IDX_DATABASE_DSN", "host=db user=idx")
	t.Setenv("IDX_REDIS_ADDR", "redis:6379")
	t.Setenv("IDX_FLOW_TOKEN", "secret")
	t.Setenv("IDX_LOG_LEVEL", "debug")

	path := writeConfig(t, "store:\n  dsn: from-file\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.DSN != "host=db user=idx" {
		t.Errorf("Expected env DSN, got %q", cfg.Store.DSN)
	}
	if cfg.Cache.RedisAddr != "redis:6379" || cfg.Flow.Token != "secret" || cfg.Log.Level != "debug" {
		t.Errorf("Env overrides not applied: %+v %+v %+v", cfg.Cache, cfg.Flow, cfg.Log)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "scanner: [oops")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"workers", func(c *Config) { c.Scanner.Workers = 0 }, "workers"},
		{"pacing", func(c *Config) { c.Flow.Pacing = -time.Second }, "pacing"},
		{"rate limit", func(c *Config) { c.Yahoo.RateLimit = 0 }, "rate_limit"},
		{"min score", func(c *Config) { c.Trend.MinScore = 9 }, "min_score"},
		{"flow days", func(c *Config) { c.Flow.Days = 0 }, "flow.days"},
		{"risk", func(c *Config) { c.Plan.RiskPercent = 0 }, "risk_percent"},
		{"redis addr", func(c *Config) { c.Cache.Backend = "redis" }, "redis_addr"},
		{"cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache backend"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, "timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
