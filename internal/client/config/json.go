package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/taskdesk/internal/flagx"
	"github.com/dmitrijs2005/taskdesk/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so they may be "3s" strings or integer nanoseconds.
type JsonConfig struct {
	APIBaseURL         string          `json:"api_base_url"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
	DatabasePath       string          `json:"database_path"`
	LogLevel           string          `json:"log_level"`
	LogFile            string          `json:"log_file"`
	SchemePollInterval *timex.Duration `json:"scheme_poll_interval"`
	SchemeFile         string          `json:"scheme_file"`
}

// parseJSON overlays cfg with the file named by -c or -config in args. Keys
// absent from the file leave cfg unchanged.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.LogFile != "" {
		cfg.LogFile = jc.LogFile
	}
	if jc.SchemePollInterval != nil {
		cfg.SchemePollInterval = jc.SchemePollInterval.Duration
	}
	if jc.SchemeFile != "" {
		cfg.SchemeFile = jc.SchemeFile
	}
	return nil
}
