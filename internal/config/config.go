package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Database (postgres user store)
	Database DatabaseConfig

	// Redis (redis user store)
	Redis RedisConfig

	// Gateway
	Gateway GatewayConfig
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// GatewayConfig holds the real-time gateway configuration
type GatewayConfig struct {
	Port            int
	HealthCheckPort int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	IdleTimeout     time.Duration
	MaxConnections  int
	JWTSecret       string
	StoreBackend    string // "postgres" or "redis"
	SendBufferSize  int
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory or parent directories
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "social_network"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Gateway: GatewayConfig{
			Port:            getEnvAsInt("GATEWAY_PORT", 8080),
			HealthCheckPort: getEnvAsInt("GATEWAY_HEALTH_PORT", 8081),
			ReadTimeout:     getEnvAsDuration("GATEWAY_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:    getEnvAsDuration("GATEWAY_WRITE_TIMEOUT", 10*time.Second),
			PingInterval:    getEnvAsDuration("GATEWAY_PING_INTERVAL", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("GATEWAY_IDLE_TIMEOUT", 120*time.Second),
			MaxConnections:  getEnvAsInt("GATEWAY_MAX_CONNECTIONS", 1000),
			JWTSecret:       getEnv("GATEWAY_JWT_SECRET", ""),
			StoreBackend:    getEnv("GATEWAY_STORE_BACKEND", "postgres"),
			SendBufferSize:  getEnvAsInt("GATEWAY_SEND_BUFFER_SIZE", 256),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Gateway.StoreBackend {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
	case "redis":
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required")
		}
	default:
		return fmt.Errorf("GATEWAY_STORE_BACKEND must be \"postgres\" or \"redis\", got %q", c.Gateway.StoreBackend)
	}
	if c.Gateway.IdleTimeout <= 0 {
		return fmt.Errorf("GATEWAY_IDLE_TIMEOUT must be positive")
	}
	if c.Gateway.MaxConnections <= 0 {
		return fmt.Errorf("GATEWAY_MAX_CONNECTIONS must be positive")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
