// Package config provides configuration loading for the classifier.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the classifier.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Model         ModelConfig         `yaml:"model"`
	Connectors    ConnectorsConfig    `yaml:"connectors"`
	Cache         CacheConfig         `yaml:"cache"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
	Auth          AuthConfig          `yaml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
}

// ModelConfig selects and configures the generative model.
type ModelConfig struct {
	Provider string `yaml:"provider"` // gemini, openrouter or stub
	Name     string `yaml:"name"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	// Timeout bounds a single model call. Zero leaves the deadline to the caller.
	Timeout time.Duration `yaml:"timeout"`
}

// ConnectorsConfig holds the regional live-data sources.
type ConnectorsConfig struct {
	Timeout     time.Duration   `yaml:"timeout"`
	Singapore   ConnectorConfig `yaml:"singapore"`
	UAE         ConnectorConfig `yaml:"uae"`
	SaudiArabia ConnectorConfig `yaml:"saudi_arabia"`
}

// ConnectorConfig configures one connector. An empty Token disables it.
type ConnectorConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	ResourceID string `yaml:"resource_id,omitempty"`
	MaxRecords int    `yaml:"max_records"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // none, memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
	TLS      bool   `yaml:"tls"`
}

// StorageConfig holds classification history settings.
type StorageConfig struct {
	Driver   string         `yaml:"driver"` // none, sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	ServiceName  string `yaml:"service_name"`
	AuditChannel string `yaml:"audit_channel"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	Enabled bool     `yaml:"enabled"`
	APIKeys []string `yaml:"api_keys"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8090,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
			MaxBodyBytes:     10 << 20,
		},
		Model: ModelConfig{
			Provider: "gemini",
			Name:     "gemini-2.5-flash",
		},
		Connectors: ConnectorsConfig{
			Timeout: 5 * time.Second,
			Singapore: ConnectorConfig{
				BaseURL:    "https://data.gov.sg",
				ResourceID: "d_ahtn_tariff_2022",
				MaxRecords: 3,
			},
			UAE: ConnectorConfig{
				BaseURL:    "https://api.customs.gov.ae",
				MaxRecords: 3,
			},
			SaudiArabia: ConnectorConfig{
				BaseURL:    "https://api.zatca.gov.sa",
				MaxRecords: 3,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        30 * time.Minute,
			MaxEntries: 1000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "hs:",
			},
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "hs-classifier.db",
				MaxOpenConns: 1,
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    2,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:     "info",
			LogFormat:    "console",
			ServiceName:  "hs-classifier",
			AuditChannel: "classifications",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Model.Provider {
	case "gemini", "openrouter", "stub":
	default:
		return fmt.Errorf("invalid model provider: %s", c.Model.Provider)
	}

	if c.Model.Timeout < 0 {
		return fmt.Errorf("model timeout must not be negative")
	}

	if c.Connectors.Timeout <= 0 {
		return fmt.Errorf("connector timeout must be positive")
	}

	switch c.Cache.Driver {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	switch c.Storage.Driver {
	case "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid storage driver: %s", c.Storage.Driver)
	}

	if c.Storage.Driver == "postgres" && c.Storage.Postgres.DSN == "" {
		return fmt.Errorf("postgres storage requires a dsn")
	}

	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth enabled but no api keys configured")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("HS_MODEL_PROVIDER"); v != "" {
		cfg.Model.Provider = v
	}

	if v := os.Getenv("HS_MODEL_NAME"); v != "" {
		cfg.Model.Name = v
	}

	if cfg.Model.APIKey == "" {
		switch cfg.Model.Provider {
		case "gemini":
			cfg.Model.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY")
		case "openrouter":
			cfg.Model.APIKey = os.Getenv("OPENROUTER_API_KEY")
		}
	}

	if v := os.Getenv("HS_MODEL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Model.Timeout = d
		}
	}

	if v := os.Getenv("SG_DATA_API_TOKEN"); v != "" {
		cfg.Connectors.Singapore.Token = v
	}

	if v := os.Getenv("UAE_CUSTOMS_API_TOKEN"); v != "" {
		cfg.Connectors.UAE.Token = v
	}

	if v := os.Getenv("ZATCA_API_TOKEN"); v != "" {
		cfg.Connectors.SaudiArabia.Token = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		opts, err := redis.ParseURL(v)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = opts.Addr
		cfg.Cache.Redis.Username = opts.Username
		cfg.Cache.Redis.Password = opts.Password
		cfg.Cache.Redis.DB = opts.DB
		cfg.Cache.Redis.TLS = opts.TLSConfig != nil
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Storage.Driver = "sqlite"
			cfg.Storage.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Storage.Driver = "postgres"
			cfg.Storage.Postgres.DSN = v
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("API_KEYS"); v != "" {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKeys = splitList(v)
	}

	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
