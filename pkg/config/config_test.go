package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/observability"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GRAFCONSOLE_GRAFANA_USERNAME", "admin")
	t.Setenv("GRAFCONSOLE_GRAFANA_PASSWORD", "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "http://localhost:3000", cfg.Grafana.BaseURL)
	assert.Equal(t, grafana.AuthModeBasic, cfg.Grafana.AuthMode)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 4, cfg.Access.Concurrency)
	assert.True(t, cfg.Sync.Enabled)
	assert.True(t, cfg.Mapping.HotReload)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Grafana.Tracing)
}

func TestLoadConfigOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GRAFCONSOLE_PORT", "8181")
	t.Setenv("GRAFCONSOLE_GRAFANA_URL", "https://grafana.internal:3000")
	t.Setenv("GRAFCONSOLE_CACHE_BACKEND", "redis")
	t.Setenv("GRAFCONSOLE_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("GRAFCONSOLE_CACHE_TTL", "90s")
	t.Setenv("GRAFCONSOLE_LOG_LEVEL", "debug")
	t.Setenv("GRAFCONSOLE_ACCESS_CONCURRENCY", "8")
	t.Setenv("GRAFCONSOLE_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("GRAFCONSOLE_OTEL_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, "https://grafana.internal:3000", cfg.Grafana.BaseURL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 8, cfg.Access.Concurrency)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Grafana.Tracing)
}

func TestLoadConfigBearerMode(t *testing.T) {
	t.Setenv("GRAFCONSOLE_GRAFANA_AUTH_MODE", "bearer")
	t.Setenv("GRAFCONSOLE_GRAFANA_API_KEY", "glsa_abc")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, grafana.AuthModeBearer, cfg.Grafana.AuthMode)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing grafana credentials",
			env:     map[string]string{},
			wantErr: "requires username and password",
		},
		{
			name: "same ports",
			env: map[string]string{
				"GRAFCONSOLE_GRAFANA_USERNAME": "admin",
				"GRAFCONSOLE_GRAFANA_PASSWORD": "secret",
				"GRAFCONSOLE_PORT":             "9999",
				"GRAFCONSOLE_HEALTH_PORT":      "9999",
			},
			wantErr: "must be different",
		},
		{
			name: "bad cache backend",
			env: map[string]string{
				"GRAFCONSOLE_GRAFANA_USERNAME": "admin",
				"GRAFCONSOLE_GRAFANA_PASSWORD": "secret",
				"GRAFCONSOLE_CACHE_BACKEND":    "memcached",
			},
			wantErr: "invalid cache backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("nonsense"))
}
