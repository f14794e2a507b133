package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// HTTP server
	Port string

	// Azure storage endpoints
	TableServiceURL string
	QueueServiceURL string
	BlobServiceURL  string

	// Document
	BudgetTable string
	DocumentKey string

	// Change feed
	ChangeQueuePrefix  string
	ChangePollInterval time.Duration
	ChangeMessageTTL   time.Duration

	// Statement archive
	StatementContainer string

	// Save timing
	SaveDebounce time.Duration
	SavedDisplay time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from defaults, an optional config file and the
// environment. Environment variables use the upper-cased key names
// (TABLE_SERVICE_URL, SAVE_DEBOUNCE, ...) and win over the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("functions_customhandler_port", "")
	v.SetDefault("table_service_url", "")
	v.SetDefault("queue_service_url", "")
	v.SetDefault("blob_service_url", "")
	v.SetDefault("budget_table", "budget")
	v.SetDefault("document_key", "1")
	v.SetDefault("change_queue_prefix", "budget-changes")
	v.SetDefault("change_poll_interval", 2*time.Second)
	v.SetDefault("change_message_ttl", time.Hour)
	v.SetDefault("statement_container", "statements")
	v.SetDefault("save_debounce", time.Second)
	v.SetDefault("saved_display", 2*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile == "" {
		configFile = os.Getenv("FINANCEPRO_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	port := v.GetString("functions_customhandler_port")
	if port == "" {
		port = v.GetString("port")
	}

	return &Config{
		Port: port,

		TableServiceURL: v.GetString("table_service_url"),
		QueueServiceURL: v.GetString("queue_service_url"),
		BlobServiceURL:  v.GetString("blob_service_url"),

		BudgetTable: v.GetString("budget_table"),
		DocumentKey: v.GetString("document_key"),

		ChangeQueuePrefix:  v.GetString("change_queue_prefix"),
		ChangePollInterval: v.GetDuration("change_poll_interval"),
		ChangeMessageTTL:   v.GetDuration("change_message_ttl"),

		StatementContainer: v.GetString("statement_container"),

		SaveDebounce: v.GetDuration("save_debounce"),
		SavedDisplay: v.GetDuration("saved_display"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	for name, raw := range map[string]string{
		"TABLE_SERVICE_URL": c.TableServiceURL,
		"QUEUE_SERVICE_URL": c.QueueServiceURL,
		"BLOB_SERVICE_URL":  c.BlobServiceURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': %v", name, raw, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid %s scheme '%s': must be 'http' or 'https'", name, u.Scheme))
		}
	}

	if c.BudgetTable == "" {
		errors = append(errors, "budget table name cannot be empty")
	}
	if c.DocumentKey == "" {
		errors = append(errors, "document key cannot be empty")
	}
	if c.ChangeQueuePrefix == "" {
		errors = append(errors, "change queue prefix cannot be empty")
	} else if c.ChangeQueuePrefix != strings.ToLower(c.ChangeQueuePrefix) {
		errors = append(errors, fmt.Sprintf("invalid change queue prefix '%s': queue names must be lower case", c.ChangeQueuePrefix))
	}

	if c.SaveDebounce < 0 {
		errors = append(errors, fmt.Sprintf("invalid save debounce %v: must not be negative", c.SaveDebounce))
	}
	if c.SavedDisplay < 0 {
		errors = append(errors, fmt.Sprintf("invalid saved display %v: must not be negative", c.SavedDisplay))
	}
	if c.ChangePollInterval < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid change poll interval %v: must be at least 100ms", c.ChangePollInterval))
	}

	if _, err := c.SlogLevel(); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateRemote checks the settings needed to reach the hosted document.
func (c *Config) ValidateRemote() error {
	var missing []string
	if c.TableServiceURL == "" {
		missing = append(missing, "TABLE_SERVICE_URL")
	}
	if c.QueueServiceURL == "" {
		missing = append(missing, "QUEUE_SERVICE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel)
	}
	return level, nil
}
