package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeTempJSON(t, dir, "full.json", map[string]any{
		"api_base_url":         "https://tasks.example",
		"request_timeout":      "7s",
		"database_path":        "/srv/t.db",
		"log_level":            "error",
		"log_file":             "/srv/t.log",
		"scheme_poll_interval": int64(500 * time.Millisecond),
		"scheme_file":          "/srv/scheme",
	})

	t.Run("loads every field", func(t *testing.T) {
		cfg := defaults()
		require.NoError(t, parseJSON(cfg, []string{"-c", path}))

		assert.Equal(t, "https://tasks.example", cfg.APIBaseURL)
		assert.Equal(t, 7*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "/srv/t.db", cfg.DatabasePath)
		assert.Equal(t, "error", cfg.LogLevel)
		assert.Equal(t, "/srv/t.log", cfg.LogFile)
		assert.Equal(t, 500*time.Millisecond, cfg.SchemePollInterval)
		assert.Equal(t, "/srv/scheme", cfg.SchemeFile)
	})

	t.Run("no flag, no changes", func(t *testing.T) {
		cfg := defaults()
		require.NoError(t, parseJSON(cfg, []string{"-a", "x"}))
		assert.Equal(t, defaults(), cfg)
	})

	t.Run("partial file keeps the rest", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"log_level": "debug"})
		cfg := defaults()
		require.NoError(t, parseJSON(cfg, []string{"-config", partial}))
		want := defaults()
		want.LogLevel = "debug"
		assert.Equal(t, want, cfg)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		require.Error(t, parseJSON(defaults(), []string{"-config", bad}))
	})
}
