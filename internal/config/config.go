package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP export queue. Empty URL disables the queue and makes exports
	// run synchronously in the request handler.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Export
	ExportDir     string
	ExportBackend string // "file" or "sheets"

	// Google Sheets export target (only for the sheets backend)
	GoogleSpreadsheetID string

	// Dashboard
	DefaultTopN int
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expensedash.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expensedash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "export_jobs"),

		ExportDir:     getEnv("EXPORT_DIR", "./exports"),
		ExportBackend: getEnv("EXPORT_BACKEND", "file"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),

		DefaultTopN: getEnvInt("DEFAULT_TOP_N", 10),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.ExportBackend {
	case "file":
		if c.ExportDir == "" {
			errors = append(errors, "export directory cannot be empty when using the file backend")
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using the sheets export backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid export backend '%s': must be one of [file sheets]", c.ExportBackend))
	}

	if c.DefaultTopN < 1 || c.DefaultTopN > 100 {
		errors = append(errors, fmt.Sprintf("invalid default top-N %d: must be between 1 and 100", c.DefaultTopN))
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

