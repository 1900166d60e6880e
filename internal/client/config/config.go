package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the taskdesk CLI.
type Config struct {
	APIBaseURL         string
	RequestTimeout     time.Duration
	DatabasePath       string
	LogLevel           string
	LogFile            string
	SchemePollInterval time.Duration
	SchemeFile         string
}

// DataDir is where local state lives unless DatabasePath says otherwise.
const DataDir = ".taskdesk"

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
	c.DatabasePath = filepath.Join(DataDir, "taskdesk.db")
	c.LogLevel = "info"
	c.LogFile = ""
	c.SchemePollInterval = 2 * time.Second
	c.SchemeFile = filepath.Join(DataDir, "color-scheme")
}

// LoadConfig builds a Config from defaults, then the environment (with an
// optional .env file), then the JSON file named by -c/-config, then flags.
// Later sources take precedence over earlier ones. args excludes the
// program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, DotEnvFile, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := parseJSON(cfg, args); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects settings that would break the HTTP client or the scheme
// ticker at runtime.
func (c *Config) validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.SchemePollInterval <= 0 {
		return fmt.Errorf("scheme poll interval must be positive, got %s", c.SchemePollInterval)
	}
	return nil
}
