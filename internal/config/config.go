// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/law-leads-crawler/internal/extract"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Fetch modes.
const (
	FetchHeadless = "headless"
	FetchHTTP     = "http"
	// FetchAuto fetches over plain HTTP and re-renders headless only when the
	// page looks client-rendered.
	FetchAuto = "auto"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Store   StoreConfig   `mapstructure:"store"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Extract ExtractConfig `mapstructure:"extract"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the operator HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// AuthConfig guards the mutating operator endpoints.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// StoreConfig selects and tunes the lead store.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// WorkerConfig governs the feeder, worker pool and reaper.
type WorkerConfig struct {
	Concurrency      int           `mapstructure:"concurrency"`
	QueueDepth       int           `mapstructure:"queue_depth"`
	BatchSize        int           `mapstructure:"batch_size"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	CandidateTimeout time.Duration `mapstructure:"candidate_timeout"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`
	ReapInterval     time.Duration `mapstructure:"reap_interval"`
}

// FetchConfig configures page retrieval.
type FetchConfig struct {
	Mode          string            `mapstructure:"mode"`
	UserAgent     string            `mapstructure:"user_agent"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	MaxParallel   int               `mapstructure:"max_parallel"`
	SettleDelay   time.Duration     `mapstructure:"settle_delay"`
	RespectRobots bool              `mapstructure:"respect_robots"`
	Headers       map[string]string `mapstructure:"headers"`
	// PromoteBelowBytes is the body size under which a script-heavy page is
	// re-rendered in auto mode.
	PromoteBelowBytes int `mapstructure:"promote_below_bytes"`
}

// ExtractConfig tunes the crawl and the email filters.
type ExtractConfig struct {
	MaxPages          int           `mapstructure:"max_pages"`
	Keywords          []string      `mapstructure:"keywords"`
	DisallowedDomains []string      `mapstructure:"disallowed_domains"`
	MXCheck           bool          `mapstructure:"mx_check"`
	MXTimeout         time.Duration `mapstructure:"mx_timeout"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment. Environment variables use the
// LEADS_ prefix (LEADS_STORE_DSN, LEADS_WORKER_CONCURRENCY); DATABASE_URL is
// accepted for the DSN as well.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("store.dsn", "LEADS_STORE_DSN", "DATABASE_URL"); err != nil {
		return Config{}, fmt.Errorf("bind dsn env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("store.max_conn_lifetime", "30m")
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.queue_depth", 16)
	v.SetDefault("worker.batch_size", 100)
	v.SetDefault("worker.poll_interval", "30s")
	v.SetDefault("worker.candidate_timeout", "3m")
	v.SetDefault("worker.stale_after", "15m")
	v.SetDefault("worker.reap_interval", "1m")
	v.SetDefault("fetch.mode", FetchHeadless)
	v.SetDefault("fetch.user_agent", "law-leads-crawler/0.1")
	v.SetDefault("fetch.timeout", "25s")
	v.SetDefault("fetch.max_parallel", 2)
	v.SetDefault("fetch.settle_delay", "750ms")
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.promote_below_bytes", 2048)
	v.SetDefault("extract.max_pages", extract.DefaultMaxPages)
	v.SetDefault("extract.keywords", extract.DefaultKeywords)
	v.SetDefault("extract.disallowed_domains", extract.DefaultDisallowedDomains)
	v.SetDefault("extract.mx_check", false)
	v.SetDefault("extract.mx_timeout", "3s")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Store.Driver)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be > 0")
	}
	if c.Worker.QueueDepth <= 0 {
		return fmt.Errorf("worker.queue_depth must be > 0")
	}
	if c.Worker.CandidateTimeout <= 0 {
		return fmt.Errorf("worker.candidate_timeout must be > 0")
	}
	if c.Worker.StaleAfter <= c.Worker.CandidateTimeout {
		return fmt.Errorf("worker.stale_after must exceed worker.candidate_timeout")
	}
	switch c.Fetch.Mode {
	case FetchHeadless, FetchAuto:
		if c.Fetch.MaxParallel <= 0 {
			return fmt.Errorf("fetch.max_parallel must be > 0 in %s mode", c.Fetch.Mode)
		}
	case FetchHTTP:
	default:
		return fmt.Errorf("fetch.mode must be %q, %q or %q, got %q", FetchHeadless, FetchHTTP, FetchAuto, c.Fetch.Mode)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if c.Extract.MaxPages <= 0 {
		return fmt.Errorf("extract.max_pages must be > 0")
	}
	return nil
}

// ExtractorConfig converts the extract section for extract.New.
func (c Config) ExtractorConfig() extract.Config {
	return extract.Config{
		MaxPages:          c.Extract.MaxPages,
		Keywords:          c.Extract.Keywords,
		DisallowedDomains: c.Extract.DisallowedDomains,
	}
}
