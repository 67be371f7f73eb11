package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Simulation defaults
	Simulation SimulationConfig

	// API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SimulationConfig holds the fallbacks used when neither the product nor the
// general configuration row sets a value.
type SimulationConfig struct {
	Runs              int
	ForecastDays      int
	BatchLifetimeDays int
	StockLimit        int64
	Schedule          string // cron spec with seconds for the daily job
}

// APIConfig holds HTTP API limits
type APIConfig struct {
	SimulateRate  float64 // requests per second per client
	SimulateBurst int
	// TrustedProxies are peer addresses whose X-Forwarded-For is believed
	TrustedProxies []string
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only caller of os.Getenv()
func Load() (*Config, error) {
	cfg := read()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadLocal reads configuration for commands that never open the database,
// such as offline scenario runs. DATABASE_URL is not required.
func LoadLocal() (*Config, error) {
	cfg := read()

	if err := cfg.validateCommon(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func read() *Config {
	// Try multiple paths for .env file
	loadEnvFile()

	return &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "stocksim"),
			User:            getEnv("DB_USER", "stocksim"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Simulation: SimulationConfig{
			Runs:              getEnvAsInt("SIM_RUNS", 1),
			ForecastDays:      getEnvAsInt("SIM_FORECAST_DAYS", 30),
			BatchLifetimeDays: getEnvAsInt("SIM_BATCH_LIFETIME_DAYS", 30),
			StockLimit:        int64(getEnvAsInt("SIM_STOCK_LIMIT", 1000)),
			Schedule:          getEnv("SIM_SCHEDULE", "0 0 5 * * *"),
		},

		API: APIConfig{
			SimulateRate:   getEnvAsFloat("API_SIMULATE_RATE", 1),
			SimulateBurst:  getEnvAsInt("API_SIMULATE_BURST", 5),
			TrustedProxies: getEnvAsList("API_TRUSTED_PROXIES"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	return c.validateCommon()
}

func (c *Config) validateCommon() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Simulation.Runs < 0 {
		return fmt.Errorf("SIM_RUNS must not be negative")
	}
	if c.Simulation.ForecastDays <= 0 {
		return fmt.Errorf("SIM_FORECAST_DAYS must be positive")
	}
	if c.Simulation.BatchLifetimeDays <= 0 {
		return fmt.Errorf("SIM_BATCH_LIFETIME_DAYS must be positive")
	}
	if c.Simulation.StockLimit <= 0 {
		return fmt.Errorf("SIM_STOCK_LIMIT must be positive")
	}

	if c.API.SimulateRate <= 0 || c.API.SimulateBurst <= 0 {
		return fmt.Errorf("API_SIMULATE_RATE and API_SIMULATE_BURST must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
