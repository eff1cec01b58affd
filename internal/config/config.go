package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"piggyback/internal/logger"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds application configuration
type Config struct {
	Env string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Match request queue
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Reconciler
	ReconcileConcurrency int
	StoreTimeout         time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		logger.Get().Debug(".env file not found, using environment only")
	}

	config := &Config{
		Env: getEnv("ENV", "development"),

		// Database
		DBDriver:   getEnv("DB_DRIVER", DriverPostgres),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "piggyback"),
		DBPassword: getEnv("DB_PASSWORD", "piggyback"),
		DBName:     getEnv("DB_NAME", "piggyback"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "piggyback.db"),

		// Match request queue
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "piggyback"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "match-requests"),
	}

	concStr := getEnv("RECONCILE_CONCURRENCY", "4")
	conc, err := strconv.Atoi(concStr)
	if err != nil {
		logger.Get().Warnf("invalid RECONCILE_CONCURRENCY value '%s', falling back to 4", concStr)
		conc = 4
	}
	config.ReconcileConcurrency = conc

	timeoutStr := getEnv("STORE_TIMEOUT", "5s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		logger.Get().Warnf("invalid STORE_TIMEOUT value '%s', falling back to 5s", timeoutStr)
		timeout = 5 * time.Second
	}
	config.StoreTimeout = timeout

	return config, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.DBDriver {
	case DriverPostgres:
		if port, err := strconv.Atoi(c.DBPort); err != nil || port < 1 || port > 65535 {
			problems = append(problems, fmt.Sprintf("invalid DB_PORT '%s': must be between 1 and 65535", c.DBPort))
		}
		if c.DBName == "" {
			problems = append(problems, "DB_NAME cannot be empty")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH cannot be empty when DB_DRIVER is sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid DB_DRIVER '%s': must be postgres or sqlite", c.DBDriver))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP_URL: %v", err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP_URL scheme '%s': must be amqp or amqps", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP_EXCHANGE cannot be empty when AMQP_URL is set")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP_QUEUE cannot be empty when AMQP_URL is set")
		}
	}

	if c.ReconcileConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("invalid RECONCILE_CONCURRENCY %d: must be at least 1", c.ReconcileConcurrency))
	}
	if c.StoreTimeout <= 0 {
		problems = append(problems, "STORE_TIMEOUT must be positive")
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(problems, "; "))
	}
	return nil
}

// PostgresDSN returns the key/value connection string used by gorm.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// PostgresURL returns the URL form used by golang-migrate.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
