package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Upstream   UpstreamConfig
	Policy     PolicyConfig
	ServiceBus ServiceBusConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	// RunRetention is how long a settled run stays in memory after its last change.
	RunRetention       time.Duration
}

// UpstreamConfig points at the payroll engine that computes previews,
// routes approvals and delivers payslips.
type UpstreamConfig struct {
	PayrollEngineURL string
	Timeout          time.Duration
}

type PolicyConfig struct {
	Path string
}

// ServiceBusConfig is optional; an empty connection string disables publishing.
type ServiceBusConfig struct {
	ConnectionString string
	Queue            string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.ParseInt(getEnv("DB_MAX_CONNS", "25"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-hris"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	runRetention, err := time.ParseDuration(getEnv("PAYROLL_RUN_RETENTION", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_RUN_RETENTION: %w", err)
	}

	config.App = AppConfig{
		RunRetention:       runRetention,
		Port:               appPort,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Payroll engine
	timeout, err := time.ParseDuration(getEnv("PAYROLL_ENGINE_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_ENGINE_TIMEOUT: %w", err)
	}

	config.Upstream = UpstreamConfig{
		PayrollEngineURL: getEnv("PAYROLL_ENGINE_URL", ""),
		Timeout:          timeout,
	}

	config.Policy = PolicyConfig{
		Path: getEnv("PAYROLL_POLICY_PATH", ""),
	}

	config.ServiceBus = ServiceBusConfig{
		ConnectionString: getEnv("SERVICEBUS_CONNECTION_STRING", ""),
		Queue:            getEnv("SERVICEBUS_QUEUE", "payroll-events"),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Upstream.PayrollEngineURL == "" {
		return fmt.Errorf("PAYROLL_ENGINE_URL is required")
	}
	if c.ServiceBus.ConnectionString != "" && c.ServiceBus.Queue == "" {
		return fmt.Errorf("SERVICEBUS_QUEUE is required when SERVICEBUS_CONNECTION_STRING is set")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
