package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (empty URL disables change-event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export (optional)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Advisor constants; jurisdiction/year specific, hence configurable
	PillarCapCents     int64
	PillarTaxFactor    float64
	MinSavingsRate     float64
	ComfortSavingsRate float64

	// Chart manager
	ChartRetryDelay time.Duration
	ChartMaxRetries int

	// Rendered fragment cache
	FragmentCacheSize int
	FragmentCacheTTL  time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgetboard.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetboard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "model_changes"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Wealth"),

		PillarCapCents:     getEnvInt64("PILLAR_3A_CAP_CENTS", 725800),
		PillarTaxFactor:    getEnvFloat("PILLAR_3A_TAX_FACTOR", 0.15),
		MinSavingsRate:     getEnvFloat("MIN_SAVINGS_RATE", 15),
		ComfortSavingsRate: getEnvFloat("COMFORT_SAVINGS_RATE", 30),

		ChartRetryDelay: getEnvDuration("CHART_RETRY_DELAY", 250*time.Millisecond),
		ChartMaxRetries: getEnvInt("CHART_MAX_RETRIES", 20),

		FragmentCacheSize: getEnvInt("FRAGMENT_CACHE_SIZE", 100),
		FragmentCacheTTL:  getEnvDuration("FRAGMENT_CACHE_TTL", 5*time.Minute),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// The repository constructor creates the directory; validation only
	// rejects an empty path.
	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.PillarCapCents <= 0 {
		errs = append(errs, fmt.Sprintf("invalid pillar 3a cap %d: must be positive", c.PillarCapCents))
	}
	if c.PillarTaxFactor <= 0 || c.PillarTaxFactor >= 1 {
		errs = append(errs, fmt.Sprintf("invalid pillar tax factor %v: must be between 0 and 1", c.PillarTaxFactor))
	}
	if c.MinSavingsRate <= 0 || c.MinSavingsRate > 100 {
		errs = append(errs, fmt.Sprintf("invalid minimum savings rate %v", c.MinSavingsRate))
	}
	if c.ComfortSavingsRate <= c.MinSavingsRate || c.ComfortSavingsRate > 100 {
		errs = append(errs, fmt.Sprintf("invalid comfort savings rate %v: must exceed the minimum rate", c.ComfortSavingsRate))
	}

	if c.ChartRetryDelay < time.Millisecond {
		errs = append(errs, fmt.Sprintf("invalid chart retry delay %v: must be at least 1ms", c.ChartRetryDelay))
	}
	if c.ChartMaxRetries < 1 {
		errs = append(errs, fmt.Sprintf("invalid chart retry bound %d: must be at least 1", c.ChartMaxRetries))
	}

	if c.FragmentCacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid fragment cache size %d: must be at least 1", c.FragmentCacheSize))
	}
	if c.FragmentCacheTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid fragment cache TTL %v: must be at least 1 second", c.FragmentCacheTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
