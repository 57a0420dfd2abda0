package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// AppConfig is the full server configuration, read from the environment
type AppConfig struct {
	Server  ServerConfig
	Storage StorageConfig
	Grader  GraderConfig
	Match   MatchConfig
	Log     LogConfig
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string        `env:"HTTP_HOST"`
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	AllowedOrigins  []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
	SendBuffer      int           `env:"WS_SEND_BUFFER" envDefault:"256"`
}

// StorageConfig selects the directory backend
type StorageConfig struct {
	Type         string        `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL     string        `env:"REDIS_URL"`
	PostgresDSN  string        `env:"POSTGRES_DSN"`
	WriteTimeout time.Duration `env:"DIRECTORY_WRITE_TIMEOUT" envDefault:"5s"`
}

// GraderConfig holds Judge0 settings. An empty APIKey selects the static grader.
type GraderConfig struct {
	BaseURL      string        `env:"JUDGE0_BASE_URL" envDefault:"https://judge0-ce.p.rapidapi.com"`
	APIKey       string        `env:"JUDGE0_API_KEY"`
	APIHost      string        `env:"JUDGE0_API_HOST" envDefault:"judge0-ce.p.rapidapi.com"`
	LanguageID   int           `env:"JUDGE0_LANGUAGE_ID" envDefault:"71"`
	PollInterval time.Duration `env:"JUDGE0_POLL_INTERVAL" envDefault:"1s"`
	MaxPolls     int           `env:"JUDGE0_MAX_POLLS" envDefault:"15"`
	Timeout      time.Duration `env:"JUDGE0_TIMEOUT" envDefault:"30s"`
}

// MatchConfig holds gameplay tuning
type MatchConfig struct {
	AttackCooldown time.Duration `env:"ATTACK_COOLDOWN" envDefault:"15s"`
	MaxAmmo        int           `env:"MAX_AMMO" envDefault:"5"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses the environment into an AppConfig and validates it
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements
func (c AppConfig) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT out of range: %d", c.Server.Port))
	}
	if c.Server.SendBuffer <= 0 {
		errs = append(errs, errors.New("WS_SEND_BUFFER must be positive"))
	}

	switch c.Storage.Type {
	case StorageTypeMemory:
	case StorageTypeRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL required when STORAGE_TYPE=redis"))
		}
	case StorageTypePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN required when STORAGE_TYPE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid STORAGE_TYPE %q: must be memory, redis or postgres", c.Storage.Type))
	}

	if c.Match.MaxAmmo < 0 {
		errs = append(errs, errors.New("MAX_AMMO must not be negative"))
	}
	if c.Match.AttackCooldown < 0 {
		errs = append(errs, errors.New("ATTACK_COOLDOWN must not be negative"))
	}

	return errors.Join(errs...)
}

// SlogLevel maps the configured level name to a slog.Level
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// UseJudge0 reports whether a real Judge0 backend is configured
func (c GraderConfig) UseJudge0() bool {
	return c.APIKey != ""
}
