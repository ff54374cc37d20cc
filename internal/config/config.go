package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"covidsql/internal/errors"
)

// DefaultFiles are the datasets the covid-sql project ships with, in the
// order they are previewed.
var DefaultFiles = []string{
	"country_wise_latest.csv",
	"covid_19_clean_complete.csv",
	"day_wise.csv",
}

// Config represents the complete smoke test configuration
type Config struct {
	Data     DataConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// DataConfig describes where the expected datasets live
type DataConfig struct {
	// Root is the directory file names are resolved against. Empty means the
	// process working directory.
	Root  string
	Files []string
	Sheet string
}

// DatabaseConfig holds the optional database check settings
type DatabaseConfig struct {
	URL     string
	Timeout time.Duration
}

// Enabled reports whether a database check was requested
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

// Override adjusts configuration read from the environment before it is
// validated, typically from command line flags
type Override func(*Config)

// WithRoot anchors expected files to dir
func WithRoot(dir string) Override {
	return func(c *Config) { c.Data.Root = dir }
}

// Load reads configuration from environment variables, applies overrides and
// validates the result
func Load(overrides ...Override) (*Config, error) {
	config := &Config{
		Data:     loadDataConfig(),
		Database: loadDatabaseConfig(),
		Logging: LoggingConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "INFO"),
		},
	}
	for _, override := range overrides {
		override(config)
	}

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDataConfig() DataConfig {
	return DataConfig{
		Root:  getEnvOrDefault("SMOKE_ROOT", ""),
		Files: getEnvListOrDefault("SMOKE_FILES", DefaultFiles),
		Sheet: getEnvOrDefault("SMOKE_SHEET", "Sheet1"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", ""),
		Timeout: getEnvDurationOrDefault("SMOKE_DB_TIMEOUT", 5*time.Second),
	}
}

// Validate checks a config assembled from env and flags
func Validate(config *Config) error {
	if len(config.Data.Files) == 0 {
		return errors.ConfigInvalid("at least one expected file is required")
	}
	for _, name := range config.Data.Files {
		if strings.TrimSpace(name) == "" {
			return errors.ConfigInvalid("expected file names cannot be blank")
		}
	}
	if config.Data.Root != "" {
		info, err := os.Stat(config.Data.Root)
		if err != nil {
			return errors.Wrapf(errors.ConfigInvalid(err.Error()), "data root %s", config.Data.Root)
		}
		if !info.IsDir() {
			return errors.ConfigInvalid("data root " + config.Data.Root + " is not a directory")
		}
	}
	if config.Database.Enabled() && config.Database.Timeout <= 0 {
		return errors.ConfigInvalid("database timeout must be positive")
	}
	return nil
}

// Path resolves an expected file name against the data root
func (c DataConfig) Path(name string) string {
	if c.Root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Root, name)
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
