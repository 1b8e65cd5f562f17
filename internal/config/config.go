package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Gupshup   GupshupConfig
	Cashfree  CashfreeConfig
	Lifecycle LifecycleConfig
	Outbox    OutboxConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// Address returns the listen address in host:port form.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	URL             string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// RedisConfig holds Redis connection configuration. Redis only backs the
// sweeper lease, so a bare address and DB index are enough.
type RedisConfig struct {
	Addr string
	DB   int
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration. The JWT secret signs the
// seller session cookie; the admin API key gates the admin endpoints.
type AuthConfig struct {
	JWTSecret   string
	SessionTTL  time.Duration
	AdminAPIKey string
}

// GupshupConfig holds WhatsApp gateway credentials.
type GupshupConfig struct {
	APIKey       string
	APIURL       string
	SourceNumber string
	SrcName      string
}

// CashfreeConfig holds payment gateway credentials.
type CashfreeConfig struct {
	APIURL    string
	ClientID  string
	SecretKey string
}

// LifecycleConfig holds the business-time constants of the order lifecycle.
type LifecycleConfig struct {
	SellerResponseWindow time.Duration
	ReturnWindow         time.Duration
	CommissionRate       float64 // fraction of item amount withheld from seller earnings
	AdminPhone           string
	OTPTTL               time.Duration
	OTPRetention         time.Duration
}

// OutboxConfig holds notification outbox drain settings.
type OutboxConfig struct {
	DrainInterval time.Duration
	MaxAttempts   int
	BatchSize     int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", "postgres://postgres@localhost:5432/threadkart?sslmode=disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
			DB:   getEnvAsInt("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			SessionTTL:  getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		},
		Gupshup: GupshupConfig{
			APIKey:       getEnv("GUPSHUP_API_KEY", ""),
			APIURL:       getEnv("GUPSHUP_API_URL", "https://api.gupshup.io/wa/api/v1"),
			SourceNumber: getEnv("GUPSHUP_SOURCE_NUMBER", ""),
			SrcName:      getEnv("GUPSHUP_SRC_NAME", ""),
		},
		Cashfree: CashfreeConfig{
			APIURL:    getEnv("CASHFREE_API_URL", "https://api.cashfree.com/pg"),
			ClientID:  getEnv("CASHFREE_CLIENT_ID", ""),
			SecretKey: getEnv("CASHFREE_SECRET_KEY", ""),
		},
		Lifecycle: LifecycleConfig{
			SellerResponseWindow: getEnvAsDuration("SELLER_RESPONSE_WINDOW", 3*time.Minute),
			ReturnWindow:         getEnvAsDuration("RETURN_WINDOW", 24*time.Hour),
			CommissionRate:       getEnvAsFloat("SELLER_COMMISSION_RATE", 0.10),
			AdminPhone:           getEnv("ADMIN_NOTIFICATION_PHONE", ""),
			OTPTTL:               getEnvAsDuration("OTP_TTL", 5*time.Minute),
			OTPRetention:         getEnvAsDuration("OTP_RETENTION", 24*time.Hour),
		},
		Outbox: OutboxConfig{
			DrainInterval: getEnvAsDuration("OUTBOX_DRAIN_INTERVAL", 15*time.Second),
			MaxAttempts:   getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 5),
			BatchSize:     getEnvAsInt("OUTBOX_BATCH_SIZE", 50),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks configuration values that have no safe default.
func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Lifecycle.SellerResponseWindow <= 0 {
		return fmt.Errorf("SELLER_RESPONSE_WINDOW must be positive")
	}
	if c.Lifecycle.ReturnWindow <= 0 {
		return fmt.Errorf("RETURN_WINDOW must be positive")
	}
	if c.Lifecycle.CommissionRate < 0 || c.Lifecycle.CommissionRate >= 1 {
		return fmt.Errorf("SELLER_COMMISSION_RATE must be in [0, 1)")
	}
	if c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// getEnv retrieves an environment variable or returns the default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns the default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns the default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration or returns the default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
