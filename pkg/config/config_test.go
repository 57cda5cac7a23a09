package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/recipebox/pkg/observability"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("RECIPEBOX_TEST_STRING", "custom")
	t.Setenv("RECIPEBOX_TEST_BOOL", "1")
	t.Setenv("RECIPEBOX_TEST_INT", "42")
	t.Setenv("RECIPEBOX_TEST_BAD_INT", "forty")
	t.Setenv("RECIPEBOX_TEST_DURATION", "90s")

	assert.Equal(t, "custom", getEnv("TEST_STRING", "default"))
	assert.Equal(t, "default", getEnv("TEST_MISSING", "default"))
	assert.True(t, getEnvBool("TEST_BOOL", false))
	assert.True(t, getEnvBool("TEST_MISSING", true))
	assert.Equal(t, 42, getEnvInt("TEST_INT", 7))
	assert.Equal(t, 7, getEnvInt("TEST_BAD_INT", 7))
	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("TEST_MISSING", time.Second))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitList(" https://a.example, ,https://b.example "))
	assert.Nil(t, splitList(""))
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("RECIPEBOX_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.HealthAddr())
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Less(t, cfg.Server.RequestTimeout, cfg.Server.WriteTimeout)
	assert.False(t, cfg.RateLimit.TrustProxy)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.True(t, cfg.Database.MigrateOnStart)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("RECIPEBOX_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("RECIPEBOX_PORT", "8081")
	t.Setenv("RECIPEBOX_DB_DRIVER", "postgres")
	t.Setenv("RECIPEBOX_DATABASE_URL", "postgres://recipes@localhost/recipes?sslmode=disable")
	t.Setenv("RECIPEBOX_DB_MAX_OPEN_CONNS", "30")
	t.Setenv("RECIPEBOX_RATE_LIMIT_ENABLED", "true")
	t.Setenv("RECIPEBOX_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RECIPEBOX_TRUST_PROXY", "true")
	t.Setenv("RECIPEBOX_REQUEST_TIMEOUT", "5s")
	t.Setenv("RECIPEBOX_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RateLimit.RedisURL)
	assert.True(t, cfg.RateLimit.TrustProxy)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("RECIPEBOX_DOTENV_MARKER=from-file\nRECIPEBOX_HEALTH_PORT=9191\n"), 0o600))
	t.Setenv("RECIPEBOX_ENV_FILE", path)
	t.Cleanup(func() {
		os.Unsetenv("RECIPEBOX_DOTENV_MARKER")
		os.Unsetenv("RECIPEBOX_HEALTH_PORT")
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9191", cfg.Server.HealthPort)
	assert.Equal(t, "from-file", os.Getenv("RECIPEBOX_DOTENV_MARKER"))
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	t.Setenv("RECIPEBOX_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("RECIPEBOX_LOG_LEVEL", "chatty")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Helper()
		t.Setenv("RECIPEBOX_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		cfg, err := LoadConfig()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name:    "shared ports",
			mutate:  func(c *Config) { c.Server.HealthPort = c.Server.Port },
			wantErr: "server port and health port must be different",
		},
		{
			name:    "request timeout not shorter than write timeout",
			mutate:  func(c *Config) { c.Server.RequestTimeout = c.Server.WriteTimeout },
			wantErr: "request timeout must be shorter than write timeout",
		},
		{
			name:    "negative request timeout",
			mutate:  func(c *Config) { c.Server.RequestTimeout = -time.Second },
			wantErr: "request timeout must not be negative",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "unsupported database driver",
		},
		{
			name: "rate limit without window",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.Window = 0
			},
			wantErr: "rate limit window",
		},
		{
			name: "otel without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "OpenTelemetry endpoint is required",
		},
		{
			name: "otel sample ratio out of range",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelSampleRatio = 1.5
			},
			wantErr: "sample ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
