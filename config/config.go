package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Visit      VisitConfig      `yaml:"visit"`
	Redis      RedisConfig      `yaml:"redis"`
	Realtime   RealtimeConfig   `yaml:"realtime"`
	Log        LogConfig        `yaml:"log"`
}

// DefaultAllowedOrigin is the only cross-origin caller allowed when
// server.allowed_origins is unset.
const DefaultAllowedOrigin = "http://localhost:5173"

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	DevMode         bool     `yaml:"dev_mode"`
}

// CacheTTL returns the response cache lifetime.
func (s ServerConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTLHours int           `yaml:"token_ttl_hours"`
	TokenTTL      time.Duration `yaml:"-"`
	CookieName    string        `yaml:"cookie_name"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// VisitConfig holds visit scheduling settings.
type VisitConfig struct {
	Timezone string `yaml:"timezone"`
}

// RedisConfig selects the shared response cache. An empty Addr keeps the cache in-process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RealtimeConfig holds the event stream settings.
type RealtimeConfig struct {
	HeartbeatSeconds int           `yaml:"heartbeat_seconds"`
	Heartbeat        time.Duration `yaml:"-"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `yaml:"format"` // text or json
	Level  string `yaml:"level"`
}

// LoadEnv reads a .env file into the process environment if one exists.
func LoadEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
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

	applyEnv(&cfg)
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8800
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{DefaultAllowedOrigin}
	}
	if slices.Contains(cfg.Server.AllowedOrigins, "*") {
		return errors.New("server.allowed_origins must list origins explicitly; credentials are allowed")
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set")
	}
	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 7 * 24
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "token"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		slog.Info("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}

	if cfg.Visit.Timezone == "" {
		cfg.Visit.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(cfg.Visit.Timezone); err != nil {
		return fmt.Errorf("invalid visit.timezone %q: %w", cfg.Visit.Timezone, err)
	}

	if cfg.Realtime.HeartbeatSeconds <= 0 {
		cfg.Realtime.HeartbeatSeconds = 30
	}
	cfg.Realtime.Heartbeat = time.Duration(cfg.Realtime.HeartbeatSeconds) * time.Second

	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return nil
}

// Location returns the timezone visit dates are evaluated in.
func (v VisitConfig) Location() *time.Location {
	loc, err := time.LoadLocation(v.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
