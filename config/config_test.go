package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "sqlite:file::memory:"
personio:
  demo: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 300*time.Second, cfg.Scraper.Interval)
	assert.Equal(t, 200, cfg.Personio.PageSize)
	assert.Equal(t, time.Minute, cfg.Personio.Cooldown)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, "Organization", cfg.Organization.Name)
	assert.Equal(t, "DE", cfg.Holidays.Country)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
organization:
  name: "From File"
database:
  dsn: "postgres://file"
personio:
  client_id: "file-id"
  client_secret: "file-secret"
`)
	t.Setenv("PORT", "9100")
	t.Setenv("COMPANY_NAME", "Acme GmbH")
	t.Setenv("DATABASE_DSN", "sqlite:file::memory:")
	t.Setenv("PERSONIO_CLIENT_SECRET", "env-secret")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "Acme GmbH", cfg.Organization.Name)
	assert.Equal(t, "sqlite:file::memory:", cfg.Database.DSN)
	assert.Equal(t, "file-id", cfg.Personio.ClientID)
	assert.Equal(t, "env-secret", cfg.Personio.ClientSecret)
	assert.False(t, cfg.Personio.Demo)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:       ServerConfig{Port: 8080},
			Organization: OrganizationConfig{Timezone: "UTC"},
			Personio:     PersonioConfig{Demo: true},
			Database:     DatabaseConfig{DSN: "sqlite:file::memory:"},
			Log:          LogConfig{Level: "info"},
		}
	}

	testCases := []struct {
		name      string
		mutate    func(*Config)
		expectErr string
	}{
		{name: "Valid", mutate: func(*Config) {}},
		{name: "Port zero", mutate: func(c *Config) { c.Server.Port = 0 }, expectErr: "server.port"},
		{name: "Auth without secret", mutate: func(c *Config) { c.Auth.Enabled = true }, expectErr: "jwt_secret"},
		{
			name:      "Personio without credentials",
			mutate:    func(c *Config) { c.Personio.Demo = false; c.Personio.ClientID = "id" },
			expectErr: "client_secret",
		},
		{name: "Missing DSN", mutate: func(c *Config) { c.Database.DSN = "" }, expectErr: "database.dsn"},
		{name: "Bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, expectErr: "log.level"},
		{name: "Bad timezone", mutate: func(c *Config) { c.Organization.Timezone = "Mars/Olympus" }, expectErr: "timezone"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.expectErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectErr)
		})
	}
}
