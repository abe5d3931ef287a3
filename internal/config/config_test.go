package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("STORE_BACKEND", StoreMemory)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Token.TTL)
	assert.Equal(t, time.Duration(0), cfg.Token.Leeway)
	assert.Equal(t, RateLimitMemory, cfg.RateLimit.Backend)
	assert.Equal(t, 8, cfg.Password.MinLength)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tenantdesk.yaml")
	content := `
server:
  port: "9090"
store:
  backend: memory
token:
  secret: ` + testSecret + `
  ttl: 2h
rate_limit:
  backend: redis
  burst: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RATELIMIT_BURST", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port, "file value applies")
	assert.Equal(t, 2*time.Hour, cfg.Token.TTL, "file duration parsed")
	assert.Equal(t, RateLimitRedis, cfg.RateLimit.Backend)
	assert.Equal(t, 7, cfg.RateLimit.Burst, "environment wins over file")
	assert.Equal(t, "tenantdesk", cfg.Token.Issuer, "default kept when absent from file")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid memory store", func(c *Config) { c.Store.Backend = StoreMemory }, ""},
		{"short secret", func(c *Config) { c.Token.Secret = "short" }, "TOKEN_SECRET"},
		{"postgres without password", func(c *Config) { c.Store.Backend = StorePostgres }, "DB_PASSWORD"},
		{"postgres with password", func(c *Config) {
			c.Store.Backend = StorePostgres
			c.Database.Password = "secret"
		}, ""},
		{"unknown store", func(c *Config) { c.Store.Backend = "sqlite" }, "STORE_BACKEND"},
		{"unknown limiter", func(c *Config) { c.RateLimit.Backend = "memcached" }, "RATELIMIT_BACKEND"},
		{"zero ttl", func(c *Config) { c.Token.TTL = 0 }, "TOKEN_TTL"},
		{"negative leeway", func(c *Config) { c.Token.Leeway = -time.Second }, "TOKEN_LEEWAY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Token.Secret = testSecret
			cfg.Store.Backend = StoreMemory
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
