package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"idxscreener/internal/logging"
)

// Config represents the application configuration
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Yahoo    YahooConfig    `yaml:"yahoo"`
	Store    StoreConfig    `yaml:"store"`
	Cache    CacheConfig    `yaml:"cache"`
	Flow     FlowConfig     `yaml:"flow"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	Trend    TrendConfig    `yaml:"trend"`
	Plan     PlanConfig     `yaml:"plan"`
	Brokers  FileConfig     `yaml:"brokers"`
	Sectors  FileConfig     `yaml:"sectors"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console, json or auto
}

// YahooConfig holds the chart API settings
type YahooConfig struct {
	BaseURL   string        `yaml:"base_url"`
	RateLimit int           `yaml:"rate_limit"` // requests per minute
	Timeout   time.Duration `yaml:"timeout"`
}

// StoreConfig holds the bulk bar/flow database settings. An empty DSN disables the store.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// CacheConfig holds bar cache settings
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // memory, redis or none
	TTL           time.Duration `yaml:"ttl"`
	MaxDays       int           `yaml:"max_days"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

// FlowConfig holds broker flow settings
type FlowConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	Pacing  time.Duration `yaml:"pacing"` // spacing between daily snapshot calls
	Days    int           `yaml:"days"`
}

// ScannerConfig holds scanner settings
type ScannerConfig struct {
	Workers    int           `yaml:"workers"`
	Timeout    time.Duration `yaml:"timeout"`
	Pacing     time.Duration `yaml:"pacing"` // spacing between ticker fetches
	ScreenDays int           `yaml:"screen_days"`
	Universe   string        `yaml:"universe"`
}

// TrendConfig holds trend template settings
type TrendConfig struct {
	MinScore int `yaml:"min_score"`
}

// PlanConfig holds trading plan defaults
type PlanConfig struct {
	AccountSize float64 `yaml:"account_size"`
	RiskPercent float64 `yaml:"risk_percent"`
}

// FileConfig points at an optional data file; empty uses the built-in data
type FileConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig holds scheduled screening settings
type ScheduleConfig struct {
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`
	Preset   string `yaml:"preset"`
}

// MetricsConfig holds the metrics endpoint settings. An empty address disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
		Yahoo: YahooConfig{
			BaseURL:   "https://query1.finance.yahoo.com/v8/finance/chart",
			RateLimit: 120,
			Timeout:   15 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     30 * time.Minute,
			MaxDays: 300,
		},
		Flow: FlowConfig{
			Timeout: 15 * time.Second,
			Pacing:  1100 * time.Millisecond,
			Days:    10,
		},
		Scanner: ScannerConfig{
			Workers:    4,
			Timeout:    20 * time.Second,
			Pacing:     150 * time.Millisecond,
			ScreenDays: 300,
			Universe:   "lq45",
		},
		Trend: TrendConfig{
			MinScore: 7,
		},
		Plan: PlanConfig{
			RiskPercent: 2,
		},
		Schedule: ScheduleConfig{
			// 16:30 WIB, after the IDX close
			Cron:     "0 30 16 * * 1-5",
			Timezone: "Asia/Jakarta",
			Preset:   "bullish",
		},
	}
}

// Load loads configuration from a YAML file, a .env file and the environment.
// A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides secrets and endpoints from the environment
func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"IDX_DATABASE_DSN", &c.Store.DSN},
		{"IDX_REDIS_ADDR", &c.Cache.RedisAddr},
		{"IDX_REDIS_PASSWORD", &c.Cache.RedisPassword},
		{"IDX_FLOW_BASE_URL", &c.Flow.BaseURL},
		{"IDX_FLOW_TOKEN", &c.Flow.Token},
		{"IDX_LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Scanner.Workers < 1 {
		return fmt.Errorf("scanner.workers must be at least 1")
	}
	if c.Scanner.Pacing < 0 || c.Flow.Pacing < 0 {
		return fmt.Errorf("pacing must not be negative")
	}
	if c.Yahoo.RateLimit < 1 {
		return fmt.Errorf("yahoo.rate_limit must be at least 1")
	}
	if c.Trend.MinScore < 0 || c.Trend.MinScore > 8 {
		return fmt.Errorf("trend.min_score must be between 0 and 8")
	}
	if c.Flow.Days < 1 {
		return fmt.Errorf("flow.days must be at least 1")
	}
	if c.Plan.AccountSize < 0 {
		return fmt.Errorf("plan.account_size must not be negative")
	}
	if c.Plan.RiskPercent <= 0 || c.Plan.RiskPercent > 100 {
		return fmt.Errorf("plan.risk_percent must be in (0, 100]")
	}
	switch c.Cache.Backend {
	case "memory", "none", "":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend (or set IDX_REDIS_ADDR)")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Log.Format {
	case "", logging.FormatAuto, logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}
