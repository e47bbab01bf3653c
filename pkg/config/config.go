// Package config reads runtime settings from the environment. A local .env
// file is loaded first without overriding variables that are already set.
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
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"

	// DevJWTSecret is the development fallback; main warns when it is used.
	DevJWTSecret = "dev-insecure-secret-change"
)

type Config struct {
	Port string

	StoreBackend string
	DBFile       string
	DBWatch      bool
	DSN          string
	AutoMigrate  bool

	JWTSecret string
	JWTTTL    time.Duration

	SeedDemoUser bool

	AMQPURL      string
	AMQPExchange string

	LogLevel  string
	LogFormat string
	GinMode   string
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load() // missing .env is fine
	return FromEnv()
}

func FromEnv() *Config {
	return &Config{
		Port: getEnv("PORT", "5001"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendFile)),
		DBFile:       getEnv("DB_FILE", "data/fintrack.json"),
		DBWatch:      getEnvBool("DB_WATCH", true),
		DSN:          getEnv("DB_DSN", ""),
		AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", true),

		JWTSecret: getEnv("JWT_SECRET", DevJWTSecret),
		JWTTTL:    getEnvDuration("JWT_TTL", 7*24*time.Hour),

		SeedDemoUser: getEnvBool("SEED_DEMO_USER", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
		GinMode:   getEnv("GIN_MODE", "debug"),
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.StoreBackend {
	case BackendFile:
		if strings.TrimSpace(c.DBFile) == "" {
			problems = append(problems, "DB_FILE cannot be empty when using the file backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DSN) == "" {
			problems = append(problems, "DB_DSN is required when using the postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid store backend %q: must be %q or %q", c.StoreBackend, BackendFile, BackendPostgres))
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET cannot be empty")
	}
	if c.JWTTTL <= 0 {
		problems = append(problems, fmt.Sprintf("invalid JWT_TTL %v: must be positive", c.JWTTTL))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP_EXCHANGE cannot be empty when AMQP_URL is set")
		}
	}

	if c.LogFormat != "console" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("invalid LOG_FORMAT %q: must be 'console' or 'json'", c.LogFormat))
	}

	switch c.GinMode {
	case "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("invalid GIN_MODE %q: must be 'debug', 'release' or 'test'", c.GinMode))
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed:\n- " + strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
