// Package config loads runtime configuration for the taskdesk CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. TASKDESK_* environment variables, with a .env file in the working
//     directory filling in unset ones.
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the task API
//	-t int      request timeout (seconds)
//	-d string   path of the local database
//	-l string   log level
//
// # JSON schema
//
//	{
//	  "api_base_url": "http://127.0.0.1:8080",
//	  "request_timeout": "10s",
//	  "database_path": ".taskdesk/taskdesk.db",
//	  "log_level": "info",
//	  "log_file": "",
//	  "scheme_poll_interval": "2s"
//	}
package config
