package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for tracking-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// MigrationsPath is the directory containing SQL migration files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional company-resolution cache)
	Redis RedisConfig `yaml:"redis"`

	// Pipeline API configuration (shipment search, coordinates, documents)
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"trackport"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"tracking_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis configuration for the company-resolution cache.
// If Host is empty the cache is disabled and every lookup hits Postgres.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`

	// CacheTTLSeconds bounds how long a resolved company may be served from
	// cache. Writes invalidate eagerly; the TTL is the backstop.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" env:"REDIS_CACHE_TTL_SECONDS" env-default:"30"`
}

// PipelineConfig holds endpoints and credentials for the Pipeline API,
// the upstream provider of shipment search, coordinate and document data.
type PipelineConfig struct {
	SearchBaseURL      string `yaml:"search_base_url" env:"PIPELINE_SEARCH_BASE_URL" env-default:""`
	CoordinatesBaseURL string `yaml:"coordinates_base_url" env:"PIPELINE_COORDINATES_BASE_URL" env-default:""`
	DocumentsBaseURL   string `yaml:"documents_base_url" env:"PIPELINE_DOCUMENTS_BASE_URL" env-default:""`

	// APIKey authenticates platform-level calls (search, coordinates).
	// Document calls use the per-company token instead.
	APIKey string `yaml:"-" env:"PIPELINE_API_KEY"` // Secret - not in YAML

	// RequestTimeoutSeconds bounds every single Pipeline HTTP call.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" env:"PIPELINE_REQUEST_TIMEOUT_SECONDS" env-default:"15"`

	// BranchTimeoutSeconds bounds each optional aggregation branch
	// (coordinates, documents) including retries.
	BranchTimeoutSeconds int `yaml:"branch_timeout_seconds" env:"PIPELINE_BRANCH_TIMEOUT_SECONDS" env-default:"10"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Pipeline.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline request timeout must be positive")
	}
	if c.Pipeline.BranchTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline branch timeout must be positive")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RequestTimeout returns the per-call Pipeline timeout as a duration.
func (c *PipelineConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// BranchTimeout returns the per-branch aggregation timeout as a duration.
func (c *PipelineConfig) BranchTimeout() time.Duration {
	return time.Duration(c.BranchTimeoutSeconds) * time.Second
}

// CacheTTL returns the resolver cache TTL as a duration.
func (c *RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
