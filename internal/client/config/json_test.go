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

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	t.Run("loads from flags", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{
			"api_base_url":        "http://blog.example",
			"request_timeout":     "4s",
			"search_debounce":     250000000,
			"requests_per_second": 3,
			"log_format":          "json",
		})

		cfg := defaults()
		parseJson(cfg, []string{"-config", path})

		assert.Equal(t, "http://blog.example", cfg.APIBaseURL)
		assert.Equal(t, 4*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 250*time.Millisecond, cfg.SearchDebounce)
		assert.Equal(t, 3.0, cfg.RequestsPerSecond)
		assert.Equal(t, "json", cfg.LogFormat)
		// untouched fields keep defaults
		assert.Equal(t, 60*time.Second, cfg.CacheTTL)
	})

	t.Run("no flag leaves config unchanged", func(t *testing.T) {
		cfg := &Config{APIBaseURL: "http://keep"}
		parseJson(cfg, nil)
		assert.Equal(t, "http://keep", cfg.APIBaseURL)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg, []string{"-c", bad}) })
	})
}
