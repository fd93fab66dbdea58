// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stackseek/stackseek/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Cache         CacheConfig
	Auth          AuthConfig
	OAuth         OAuthConfig
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
	MaxBodyBytes    int64
	AllowedOrigins  []string

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds Redis configuration; URL empty disables the L2 plan cache
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// CacheConfig holds plan cache settings
type CacheConfig struct {
	Enabled bool
	L1Size  int
	PlanTTL time.Duration
}

// AuthConfig holds identity provider settings
type AuthConfig struct {
	// IssuerURL is the OIDC issuer, e.g. https://securetoken.google.com/<project>
	IssuerURL string
	// Audience is the expected token audience (the identity project ID)
	Audience string
	// Disabled switches authentication to the X-Test-User-ID header.
	// Development only.
	Disabled bool
}

// OAuthProviderConfig holds per-provider OAuth client settings
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthConfig holds OAuth client settings for source-control providers
type OAuthConfig struct {
	GitHub      OAuthProviderConfig
	GitLab      OAuthProviderConfig
	Bitbucket   OAuthProviderConfig
	AzureDevOps OAuthProviderConfig
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Cache:         loadCacheConfig(),
		Auth:          loadAuthConfig(),
		OAuth:         loadOAuthConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("STACKSEEK_HOST", "0.0.0.0"),
		Port:            getEnv("STACKSEEK_PORT", "8080"),
		ReadTimeout:     getEnvDuration("STACKSEEK_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("STACKSEEK_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("STACKSEEK_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("STACKSEEK_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("STACKSEEK_MAX_BODY_BYTES", 1<<20),
		AllowedOrigins:  strings.Split(getEnv("STACKSEEK_ALLOWED_ORIGINS", "*"), ","),
		HealthPort:      getEnv("STACKSEEK_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:          getEnv("STACKSEEK_POSTGRES_URL", ""),
		MaxOpenConns: getEnvInt("STACKSEEK_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns: getEnvInt("STACKSEEK_POSTGRES_IDLE_CONNS", 5),
		ConnLifetime: getEnvDuration("STACKSEEK_POSTGRES_CONN_LIFETIME", 30*time.Minute),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:        getEnv("STACKSEEK_REDIS_URL", ""),
		Password:   getEnv("STACKSEEK_REDIS_PASSWORD", ""),
		DB:         getEnvInt("STACKSEEK_REDIS_DB", 0),
		MaxRetries: getEnvInt("STACKSEEK_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("STACKSEEK_REDIS_POOL_SIZE", 10),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: getEnvBool("STACKSEEK_CACHE_ENABLED", true),
		L1Size:  getEnvInt("STACKSEEK_L1_CACHE_SIZE", 128),
		PlanTTL: getEnvDuration("STACKSEEK_PLAN_CACHE_TTL", 5*time.Minute),
	}
}

func loadAuthConfig() AuthConfig {
	project := getEnv("STACKSEEK_AUTH_PROJECT_ID", "")
	issuer := getEnv("STACKSEEK_AUTH_ISSUER_URL", "")
	if issuer == "" && project != "" {
		issuer = "https://securetoken.google.com/" + project
	}
	return AuthConfig{
		IssuerURL: issuer,
		Audience:  getEnv("STACKSEEK_AUTH_AUDIENCE", project),
		Disabled:  getEnvBool("STACKSEEK_AUTH_DISABLED", false),
	}
}

func loadOAuthConfig() OAuthConfig {
	provider := func(prefix string) OAuthProviderConfig {
		return OAuthProviderConfig{
			ClientID:     getEnv(prefix+"_CLIENT_ID", ""),
			ClientSecret: getEnv(prefix+"_CLIENT_SECRET", ""),
			RedirectURL:  getEnv(prefix+"_REDIRECT_URL", ""),
		}
	}
	return OAuthConfig{
		GitHub:      provider("STACKSEEK_OAUTH_GITHUB"),
		GitLab:      provider("STACKSEEK_OAUTH_GITLAB"),
		Bitbucket:   provider("STACKSEEK_OAUTH_BITBUCKET"),
		AzureDevOps: provider("STACKSEEK_OAUTH_AZURE"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("STACKSEEK_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("STACKSEEK_METRICS_ENABLED", true),
	}
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

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if !c.Auth.Disabled {
		if c.Auth.IssuerURL == "" {
			return fmt.Errorf("auth issuer URL is required when authentication is enabled")
		}
		if c.Auth.Audience == "" {
			return fmt.Errorf("auth audience is required when authentication is enabled")
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
