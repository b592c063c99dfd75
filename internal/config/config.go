package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Logging
	LogLevel string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Exchange rates
	RatesAPIURL        string
	RatesTimeout       time.Duration
	RatesStaleAfter    time.Duration
	RatesCheckInterval time.Duration
	RatesSchedule      string

	// AMQP (optional)
	AMQPURL         string
	AMQPExchange    string
	AMQPQueue       string
	AMQPEventsQueue string

	// Auth (optional, all three or none)
	AuthUsername        string
	AuthPasswordHashB64 string
	AuthSecret          string

	// Google Sheets export (optional)
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/money-tracker.db"),

		RatesAPIURL:        getEnv("RATES_API_URL", "https://api.frankfurter.app"),
		RatesTimeout:       getEnvDuration("RATES_TIMEOUT", 5*time.Second),
		RatesStaleAfter:    getEnvDuration("RATES_STALE_AFTER", 24*time.Hour),
		RatesCheckInterval: getEnvDuration("RATES_CHECK_INTERVAL", time.Hour),
		RatesSchedule:      getEnv("RATES_REFRESH_SCHEDULE", "30 16 * * 1-5"),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "moneytracker"),
		AMQPQueue:       getEnv("AMQP_QUEUE", "rates.refresh"),
		AMQPEventsQueue: getEnv("AMQP_EVENTS_QUEUE", "rates.refreshed"),

		AuthUsername:        getEnv("AUTH_USERNAME", ""),
		AuthPasswordHashB64: getEnv("AUTH_PASSWORD_HASH_B64", ""),
		AuthSecret:          getEnv("AUTH_SECRET", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
	}
}

// AuthEnabled reports whether login is required.
func (c *Config) AuthEnabled() bool {
	return c.AuthUsername != "" || c.AuthPasswordHashB64 != "" || c.AuthSecret != ""
}

// AMQPEnabled reports whether a broker is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// SheetsEnabled reports whether the Google Sheets export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if u, err := url.Parse(c.RatesAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid rates API URL '%s': must be an absolute http(s) URL", c.RatesAPIURL))
	}
	if c.RatesTimeout < 100*time.Millisecond || c.RatesTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rates timeout %v: must be between 100ms and 1m", c.RatesTimeout))
	}
	if c.RatesStaleAfter < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rates staleness window %v: must be at least 1 minute", c.RatesStaleAfter))
	}
	if c.RatesCheckInterval < time.Second || c.RatesCheckInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid rates check interval %v: must be between 1 second and 24 hours", c.RatesCheckInterval))
	}

	if c.RatesSchedule != "" {
		if _, err := cron.ParseStandard(c.RatesSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rates refresh schedule '%s': %v", c.RatesSchedule, err))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" || c.AMQPEventsQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}

	if c.AuthEnabled() {
		if c.AuthUsername == "" || c.AuthPasswordHashB64 == "" || c.AuthSecret == "" {
			errors = append(errors, "AUTH_USERNAME, AUTH_PASSWORD_HASH_B64 and AUTH_SECRET must be set together")
		}
		if c.AuthPasswordHashB64 != "" {
			if _, err := base64.StdEncoding.DecodeString(c.AuthPasswordHashB64); err != nil {
				errors = append(errors, fmt.Sprintf("AUTH_PASSWORD_HASH_B64 is not valid base64: %v", err))
			}
		}
		if c.AuthSecret != "" && len(c.AuthSecret) < 16 {
			errors = append(errors, "AUTH_SECRET must be at least 16 characters")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sheets export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
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
