// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Rate limit backends
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// minSecretLength is the shortest accepted HS256 signing secret, in bytes.
const minSecretLength = 32

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Store         StoreConfig         `yaml:"store"`
	Token         TokenConfig         `yaml:"token"`
	Password      PasswordConfig      `yaml:"password"`
	Observability ObservabilityConfig `yaml:"observability"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Redis         RedisConfig         `yaml:"redis"`
	Bootstrap     BootstrapConfig     `yaml:"bootstrap"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// StoreConfig selects the resource store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
}

// TokenConfig holds identity token settings.
type TokenConfig struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
	Leeway time.Duration `yaml:"leeway"`
}

// PasswordConfig holds argon2id parameters used for new hashes.
type PasswordConfig struct {
	Argon2Memory      uint32 `yaml:"argon2_memory"`
	Argon2Iterations  uint32 `yaml:"argon2_iterations"`
	Argon2Parallelism uint8  `yaml:"argon2_parallelism"`
	Argon2SaltLength  uint32 `yaml:"argon2_salt_length"`
	Argon2KeyLength   uint32 `yaml:"argon2_key_length"`
	MinLength         int    `yaml:"min_length"`
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string  `yaml:"log_level"`
	LogFormat      string  `yaml:"log_format"`
	OTELEnabled    bool    `yaml:"otel_enabled"`
	OTELEndpoint   string  `yaml:"otel_endpoint"`
	SampleRate     float64 `yaml:"sample_rate"`
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
	Environment    string  `yaml:"environment"`
	MetricsEnabled bool    `yaml:"metrics_enabled"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Backend           string  `yaml:"backend"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// RedisConfig holds the connection used by the distributed rate limiter.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BootstrapConfig holds the initial platform administrator.
type BootstrapConfig struct {
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
	AdminName     string `yaml:"admin_name"`
}

// Default returns the built-in configuration before any file or
// environment overrides are applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			HandlerTimeout:  60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			User:            "tenantdesk",
			Database:        "tenantdesk",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Store: StoreConfig{Backend: StorePostgres},
		Token: TokenConfig{
			Issuer: "tenantdesk",
			TTL:    24 * time.Hour,
		},
		Password: PasswordConfig{
			Argon2Memory:      65536,
			Argon2Iterations:  3,
			Argon2Parallelism: 4,
			Argon2SaltLength:  16,
			Argon2KeyLength:   32,
			MinLength:         8,
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			OTELEndpoint:   "localhost:4318",
			SampleRate:     1.0,
			ServiceName:    "tenantdesk",
			ServiceVersion: "0.1.0",
			Environment:    "development",
			MetricsEnabled: true,
		},
		RateLimit: RateLimitConfig{
			Backend:           RateLimitMemory,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Bootstrap: BootstrapConfig{
			AdminName: "Platform Administrator",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = parseDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = parseDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = parseDuration("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.HandlerTimeout = parseDuration("SERVER_HANDLER_TIMEOUT", c.Server.HandlerTimeout)
	c.Server.ShutdownTimeout = parseDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = parseInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = parseInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = parseDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)

	c.Store.Backend = getEnv("STORE_BACKEND", c.Store.Backend)

	c.Token.Secret = getEnv("TOKEN_SECRET", c.Token.Secret)
	c.Token.Issuer = getEnv("TOKEN_ISSUER", c.Token.Issuer)
	c.Token.TTL = parseDuration("TOKEN_TTL", c.Token.TTL)
	c.Token.Leeway = parseDuration("TOKEN_LEEWAY", c.Token.Leeway)

	c.Password.Argon2Memory = uint32(parseInt("ARGON2_MEMORY", int(c.Password.Argon2Memory)))
	c.Password.Argon2Iterations = uint32(parseInt("ARGON2_ITERATIONS", int(c.Password.Argon2Iterations)))
	c.Password.Argon2Parallelism = uint8(parseInt("ARGON2_PARALLELISM", int(c.Password.Argon2Parallelism)))
	c.Password.Argon2SaltLength = uint32(parseInt("ARGON2_SALT_LENGTH", int(c.Password.Argon2SaltLength)))
	c.Password.Argon2KeyLength = uint32(parseInt("ARGON2_KEY_LENGTH", int(c.Password.Argon2KeyLength)))
	c.Password.MinLength = parseInt("PASSWORD_MIN_LENGTH", c.Password.MinLength)

	c.Observability.LogLevel = getEnv("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = getEnv("LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.OTELEnabled = parseBool("OTEL_ENABLED", c.Observability.OTELEnabled)
	c.Observability.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Observability.OTELEndpoint)
	c.Observability.SampleRate = parseFloat("OTEL_SAMPLE_RATE", c.Observability.SampleRate)
	c.Observability.ServiceName = getEnv("OTEL_SERVICE_NAME", c.Observability.ServiceName)
	c.Observability.ServiceVersion = getEnv("OTEL_SERVICE_VERSION", c.Observability.ServiceVersion)
	c.Observability.Environment = getEnv("ENVIRONMENT", c.Observability.Environment)
	c.Observability.MetricsEnabled = parseBool("METRICS_ENABLED", c.Observability.MetricsEnabled)

	c.RateLimit.Backend = getEnv("RATELIMIT_BACKEND", c.RateLimit.Backend)
	c.RateLimit.RequestsPerSecond = parseFloat("RATELIMIT_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = parseInt("RATELIMIT_BURST", c.RateLimit.Burst)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = parseInt("REDIS_DB", c.Redis.DB)

	c.Bootstrap.AdminEmail = getEnv("BOOTSTRAP_ADMIN_EMAIL", c.Bootstrap.AdminEmail)
	c.Bootstrap.AdminPassword = getEnv("BOOTSTRAP_ADMIN_PASSWORD", c.Bootstrap.AdminPassword)
	c.Bootstrap.AdminName = getEnv("BOOTSTRAP_ADMIN_NAME", c.Bootstrap.AdminName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Token.Secret) < minSecretLength {
		return fmt.Errorf("TOKEN_SECRET must be at least %d bytes", minSecretLength)
	}
	if c.Token.TTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.Token.Leeway < 0 {
		return fmt.Errorf("TOKEN_LEEWAY must not be negative")
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	switch c.RateLimit.Backend {
	case RateLimitMemory, RateLimitRedis:
	default:
		return fmt.Errorf("unknown RATELIMIT_BACKEND %q", c.RateLimit.Backend)
	}
	if c.Password.MinLength < 1 {
		return fmt.Errorf("PASSWORD_MIN_LENGTH must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
