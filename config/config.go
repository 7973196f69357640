package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Auth         AuthConfig         `yaml:"auth"`
	Organization OrganizationConfig `yaml:"organization"`
	Scraper      ScraperConfig      `yaml:"scraper"`
	Personio     PersonioConfig     `yaml:"personio"`
	Holidays     HolidaysConfig     `yaml:"holidays"`
	Database     DatabaseConfig     `yaml:"database"`
	Push         PushConfig         `yaml:"push"`
	WorkerPool   WorkerPoolConfig   `yaml:"worker_pool"`
	Log          LogConfig          `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" env:"VAPID_PUBLIC_KEY"`
	PrivateKey string `yaml:"vapid_private_key" env:"VAPID_PRIVATE_KEY"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port" env:"PORT"`
	RequestIPHeader string   `yaml:"request_ip_header"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// AuthConfig controls bearer-token protection of the /api group.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled" env:"AUTH_ENABLED"`
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
}

// OrganizationConfig describes the company shown at the top of the chart.
type OrganizationConfig struct {
	Name     string `yaml:"name" env:"COMPANY_NAME"`
	Timezone string `yaml:"timezone"`
}

// ScraperConfig holds the sync loop configuration.
type ScraperConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// PersonioConfig holds the upstream HR API configuration.
type PersonioConfig struct {
	Demo            bool          `yaml:"demo"`
	BaseURL         string        `yaml:"base_url"`
	ClientID        string        `yaml:"client_id" env:"PERSONIO_CLIENT_ID"`
	ClientSecret    string        `yaml:"client_secret" env:"PERSONIO_CLIENT_SECRET"`
	PageSize        int           `yaml:"page_size"`
	HTTPProxy       string        `yaml:"http_proxy"`
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	Timeout         time.Duration `yaml:"-"`
	CooldownSeconds int           `yaml:"cooldown_seconds"`
	Cooldown        time.Duration `yaml:"-"`
}

// HolidaysConfig holds the public holiday API configuration.
type HolidaysConfig struct {
	BaseURL string `yaml:"base_url"`
	Country string `yaml:"country"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format"`
}

// DefaultEnvFiles are loaded, when present, before the environment overlay.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Load reads the configuration from the given path, overlays the environment and applies defaults.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(DefaultEnvFiles); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Organization.Name == "" {
		cfg.Organization.Name = "Organization"
	}
	if cfg.Organization.Timezone == "" {
		cfg.Organization.Timezone = "Europe/Berlin"
	}

	if cfg.Scraper.IntervalSeconds <= 0 {
		cfg.Scraper.IntervalSeconds = 300
	}
	cfg.Scraper.Interval = time.Duration(cfg.Scraper.IntervalSeconds) * time.Second

	if cfg.Personio.BaseURL == "" {
		cfg.Personio.BaseURL = "https://api.personio.de/v1"
	}
	if cfg.Personio.PageSize <= 0 {
		cfg.Personio.PageSize = 200
	}
	if cfg.Personio.TimeoutSeconds <= 0 {
		cfg.Personio.TimeoutSeconds = 30
	}
	cfg.Personio.Timeout = time.Duration(cfg.Personio.TimeoutSeconds) * time.Second
	if cfg.Personio.CooldownSeconds <= 0 {
		cfg.Personio.CooldownSeconds = 60
	}
	cfg.Personio.Cooldown = time.Duration(cfg.Personio.CooldownSeconds) * time.Second
	if cfg.Personio.ClientID == "" && cfg.Personio.ClientSecret == "" && !cfg.Personio.Demo {
		logrus.Warn("personio credentials are not set; falling back to demo data")
		cfg.Personio.Demo = true
	}

	if cfg.Holidays.BaseURL == "" {
		cfg.Holidays.BaseURL = "https://date.nager.at"
	}
	if cfg.Holidays.Country == "" {
		cfg.Holidays.Country = "DE"
	}

	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		logrus.Info("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate reports configuration combinations the service cannot run with.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", cfg.Server.Port))
	}
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required when auth is enabled"))
	}
	if !cfg.Personio.Demo && (cfg.Personio.ClientID == "" || cfg.Personio.ClientSecret == "") {
		errs = append(errs, errors.New("personio.client_id and personio.client_secret are required unless demo is enabled"))
	}
	if cfg.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := time.LoadLocation(cfg.Organization.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("organization.timezone: %w", err))
	}
	return errors.Join(errs...)
}
