package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Auth       AuthConfig
	App        AppConfig
	Attendance AttendanceConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// AuthConfig holds token signing and kiosk device credentials.
type AuthConfig struct {
	Secret          string
	TokenExpiration string
	// DeviceKeys maps kiosk device id to the bcrypt hash of its key,
	// parsed from KIOSK_DEVICE_KEYS ("device-id:hash,device-id:hash").
	DeviceKeys map[string]string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

// AttendanceConfig carries the deployment-level overrides for session rules.
type AttendanceConfig struct {
	// EntityTypes lists the collections attendance is tracked for. New
	// deployments extend this without touching the session core.
	EntityTypes       []string
	DuplicateWindow   time.Duration
	MaxSessionLength  time.Duration
	AutoCheckout      bool
	AutoCheckoutAfter time.Duration
}

func Load() (*Config, error) {
	// A missing .env is fine in production, real env vars take over.
	_ = godotenv.Load()

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "presence"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// Auth configuration
	config.Auth = AuthConfig{
		Secret:          getEnv("JWT_SECRET_KEY", ""),
		TokenExpiration: getEnv("JWT_EXPIRATION_TIME", "12h"),
		DeviceKeys:      parseDeviceKeys(getEnv("KIOSK_DEVICE_KEYS", "")),
	}

	// Attendance configuration
	duplicateWindow, err := time.ParseDuration(getEnv("ATTENDANCE_DUPLICATE_WINDOW", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_DUPLICATE_WINDOW: %w", err)
	}
	maxSession, err := time.ParseDuration(getEnv("ATTENDANCE_MAX_SESSION", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_MAX_SESSION: %w", err)
	}
	autoCheckoutAfter, err := time.ParseDuration(getEnv("ATTENDANCE_AUTO_CHECKOUT_AFTER", "2h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_AUTO_CHECKOUT_AFTER: %w", err)
	}

	config.Attendance = AttendanceConfig{
		EntityTypes:       getEnvSlice("ATTENDANCE_ENTITY_TYPES", "member,staff"),
		DuplicateWindow:   duplicateWindow,
		MaxSessionLength:  maxSession,
		AutoCheckout:      getEnv("ATTENDANCE_AUTO_CHECKOUT", "true") == "true",
		AutoCheckoutAfter: autoCheckoutAfter,
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
	if c.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
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

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key, fallback string) []string {
	value := getEnv(key, fallback)
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func parseDeviceKeys(raw string) map[string]string {
	keys := make(map[string]string)
	if raw == "" {
		return keys
	}
	for _, pair := range strings.Split(raw, ",") {
		deviceID, hash, found := strings.Cut(pair, ":")
		if !found {
			continue
		}
		keys[strings.TrimSpace(deviceID)] = strings.TrimSpace(hash)
	}
	return keys
}
