// Package config loads the console configuration from GRAFCONSOLE_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Grafana       grafana.Config
	AuthBackend   AuthBackendConfig
	Mapping       MappingConfig
	Cache         CacheConfig
	Sync          SyncConfig
	Access        AccessConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthBackendConfig points at the backend auth service
type AuthBackendConfig struct {
	URL        string
	Timeout    time.Duration
	SessionTTL time.Duration
}

// MappingConfig locates the organization mapping file
type MappingConfig struct {
	Path      string
	HotReload bool
}

// CacheConfig selects and tunes the organization users cache
type CacheConfig struct {
	Backend       string // "memory" or "redis"
	TTL           time.Duration
	MemorySize    int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// SyncConfig tunes the background cache refresh
type SyncConfig struct {
	Enabled  bool
	Schedule string
}

// AccessConfig tunes the access resolver
type AccessConfig struct {
	Concurrency int
}

// AuditConfig tunes the audit trail
type AuditConfig struct {
	Dir      string
	MaxSize  int64
	MaxFiles int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("GRAFCONSOLE_HOST", "0.0.0.0"),
			Port:            getEnv("GRAFCONSOLE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("GRAFCONSOLE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("GRAFCONSOLE_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("GRAFCONSOLE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("GRAFCONSOLE_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSOrigins:     getEnvList("GRAFCONSOLE_CORS_ORIGINS", []string{"*"}),
			HealthPort:      getEnv("GRAFCONSOLE_HEALTH_PORT", "9090"),
		},
		Grafana: grafana.Config{
			BaseURL:  getEnv("GRAFCONSOLE_GRAFANA_URL", "http://localhost:3000"),
			AuthMode: getEnv("GRAFCONSOLE_GRAFANA_AUTH_MODE", grafana.AuthModeBasic),
			Username: getEnv("GRAFCONSOLE_GRAFANA_USERNAME", ""),
			Password: getEnv("GRAFCONSOLE_GRAFANA_PASSWORD", ""),
			APIKey:   getEnv("GRAFCONSOLE_GRAFANA_API_KEY", ""),
			Timeout:  getEnvDuration("GRAFCONSOLE_GRAFANA_TIMEOUT", grafana.DefaultTimeout),
		},
		AuthBackend: AuthBackendConfig{
			URL:        getEnv("GRAFCONSOLE_AUTH_BACKEND_URL", "http://localhost:8090"),
			Timeout:    getEnvDuration("GRAFCONSOLE_AUTH_BACKEND_TIMEOUT", 10*time.Second),
			SessionTTL: getEnvDuration("GRAFCONSOLE_SESSION_TTL", 12*time.Hour),
		},
		Mapping: MappingConfig{
			Path:      getEnv("GRAFCONSOLE_MAPPING_FILE", "/etc/grafana-console/mappings.json"),
			HotReload: getEnvBool("GRAFCONSOLE_MAPPING_HOT_RELOAD", true),
		},
		Cache: CacheConfig{
			Backend:       getEnv("GRAFCONSOLE_CACHE_BACKEND", "memory"),
			TTL:           getEnvDuration("GRAFCONSOLE_CACHE_TTL", 5*time.Minute),
			MemorySize:    getEnvInt("GRAFCONSOLE_CACHE_SIZE", 256),
			RedisAddr:     getEnv("GRAFCONSOLE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("GRAFCONSOLE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("GRAFCONSOLE_REDIS_DB", 0),
		},
		Sync: SyncConfig{
			Enabled:  getEnvBool("GRAFCONSOLE_SYNC_ENABLED", true),
			Schedule: getEnv("GRAFCONSOLE_SYNC_SCHEDULE", "*/5 * * * *"),
		},
		Access: AccessConfig{
			Concurrency: getEnvInt("GRAFCONSOLE_ACCESS_CONCURRENCY", 4),
		},
		Audit: AuditConfig{
			Dir:      getEnv("GRAFCONSOLE_AUDIT_DIR", "/var/log/grafana-console/audit"),
			MaxSize:  getEnvInt64("GRAFCONSOLE_AUDIT_MAX_SIZE", 100*1024*1024),
			MaxFiles: getEnvInt("GRAFCONSOLE_AUDIT_MAX_FILES", 10),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("GRAFCONSOLE_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("GRAFCONSOLE_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("GRAFCONSOLE_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("GRAFCONSOLE_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("GRAFCONSOLE_OTEL_SERVICE_NAME", "grafana-console"),
			OTelServiceVersion: getEnv("GRAFCONSOLE_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("GRAFCONSOLE_OTEL_INSECURE", true),
		},
	}
	cfg.Grafana.Tracing = cfg.Observability.OTelEnabled

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if err := c.Grafana.Validate(); err != nil {
		return err
	}

	if c.AuthBackend.URL == "" {
		return fmt.Errorf("auth backend URL is required")
	}
	if c.Mapping.Path == "" {
		return fmt.Errorf("mapping file path is required")
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be memory or redis)", c.Cache.Backend)
	}

	if c.Access.Concurrency <= 0 {
		return fmt.Errorf("access concurrency must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
