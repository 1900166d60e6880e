package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// DotEnvFile is read if it exists. Real environment variables win over it.
const DotEnvFile = ".env"

const (
	EnvAPIBaseURL         = "TASKDESK_API_URL"
	EnvRequestTimeout     = "TASKDESK_TIMEOUT"
	EnvDatabasePath       = "TASKDESK_DB"
	EnvLogLevel           = "TASKDESK_LOG_LEVEL"
	EnvLogFile            = "TASKDESK_LOG_FILE"
	EnvSchemePollInterval = "TASKDESK_SCHEME_POLL"
	EnvSchemeFile         = "TASKDESK_SCHEME_FILE"
)

// parseEnv overlays TASKDESK_* variables. lookup consults the process
// environment; the dotenv file fills in what it does not define.
func parseEnv(cfg *Config, dotenv string, lookup func(string) (string, bool)) error {
	file, err := godotenv.Read(dotenv)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", dotenv, err)
	}

	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}

	for key, dst := range map[string]*string{
		EnvAPIBaseURL:   &cfg.APIBaseURL,
		EnvDatabasePath: &cfg.DatabasePath,
		EnvLogLevel:     &cfg.LogLevel,
		EnvLogFile:      &cfg.LogFile,
		EnvSchemeFile:   &cfg.SchemeFile,
	} {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	for key, dst := range map[string]*time.Duration{
		EnvRequestTimeout:     &cfg.RequestTimeout,
		EnvSchemePollInterval: &cfg.SchemePollInterval,
	} {
		v, ok := get(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}
