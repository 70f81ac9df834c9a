package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.Connectors.Timeout)
	assert.Zero(t, cfg.Model.Timeout, "model timeout must not be defaulted")
	assert.Empty(t, cfg.Connectors.Singapore.Token)
	assert.Equal(t, 3, cfg.Connectors.Singapore.MaxRecords)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
server:
  port: 9001
model:
  provider: stub
connectors:
  timeout: 2s
  uae:
    base_url: http://uae.local
    token: from-file
cache:
  driver: none
storage:
  driver: none
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Setenv("SG_DATA_API_TOKEN", "sg-token")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "stub", cfg.Model.Provider)
	assert.Equal(t, 2*time.Second, cfg.Connectors.Timeout)
	assert.Equal(t, "http://uae.local", cfg.Connectors.UAE.BaseURL)
	assert.Equal(t, "from-file", cfg.Connectors.UAE.Token)
	assert.Equal(t, "sg-token", cfg.Connectors.Singapore.Token)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, "none", cfg.Cache.Driver)
}

func TestLoad_ModelKeyFromEnv(t *testing.T) {
	t.Setenv("HS_MODEL_PROVIDER", "openrouter")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.Model.Provider)
	assert.Equal(t, "sk-or-test", cfg.Model.APIKey)
}

func TestLoad_DatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/hs?sslmode=disable")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://u:p@localhost/hs?sslmode=disable", cfg.Storage.Postgres.DSN)
}

func TestLoad_RedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		username string
		password string
		db       int
		tls      bool
	}{
		{name: "host only", url: "redis://cache.internal:6379", addr: "cache.internal:6379"},
		{name: "password and db", url: "redis://:s3cret@cache.internal:6380/2", addr: "cache.internal:6380", password: "s3cret", db: 2},
		{name: "acl user", url: "redis://app:pw@cache.internal:6379/0", addr: "cache.internal:6379", username: "app", password: "pw"},
		{name: "tls", url: "rediss://cache.internal:6380/1", addr: "cache.internal:6380", db: 1, tls: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REDIS_URL", tt.url)

			cfg, err := Load("")
			require.NoError(t, err)
			assert.Equal(t, "redis", cfg.Cache.Driver)
			assert.Equal(t, tt.addr, cfg.Cache.Redis.Addr)
			assert.Equal(t, tt.username, cfg.Cache.Redis.Username)
			assert.Equal(t, tt.password, cfg.Cache.Redis.Password)
			assert.Equal(t, tt.db, cfg.Cache.Redis.DB)
			assert.Equal(t, tt.tls, cfg.Cache.Redis.TLS)
		})
	}
}

func TestLoad_RedisURLInvalid(t *testing.T) {
	t.Setenv("REDIS_URL", "http://cache.internal:6379")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoad_APIKeys(t *testing.T) {
	t.Setenv("API_KEYS", "alpha, beta,,")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Auth.APIKeys)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad provider", func(c *Config) { c.Model.Provider = "llama" }},
		{"negative model timeout", func(c *Config) { c.Model.Timeout = -time.Second }},
		{"zero connector timeout", func(c *Config) { c.Connectors.Timeout = 0 }},
		{"bad cache", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"bad storage", func(c *Config) { c.Storage.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"auth without keys", func(c *Config) { c.Auth.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
