package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_OverridesDefaults(t *testing.T) {
	t.Setenv("GOPHBLOG_API_BASE_URL", "http://api.example")
	t.Setenv("GOPHBLOG_REQUEST_TIMEOUT", "3s")
	t.Setenv("GOPHBLOG_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("GOPHBLOG_PAGE_SIZE", "12")

	cfg := defaults()
	parseEnv(cfg, nil)

	assert.Equal(t, "http://api.example", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
	assert.Equal(t, 12, cfg.PageSize)
}

func TestParseEnv_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GOPHBLOG_DATABASE_PATH=/tmp/from-dotenv.db\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("GOPHBLOG_DATABASE_PATH") })

	cfg := defaults()
	parseEnv(cfg, []string{"-env", path})

	assert.Equal(t, "/tmp/from-dotenv.db", cfg.DatabasePath)
}

func TestParseEnv_MissingExplicitFilePanics(t *testing.T) {
	cfg := defaults()
	require.Panics(t, func() {
		parseEnv(cfg, []string{"-env", filepath.Join(t.TempDir(), "nope.env")})
	})
}

func TestParseEnv_BadDurationPanics(t *testing.T) {
	t.Setenv("GOPHBLOG_CACHE_TTL", "soon")
	cfg := defaults()
	require.Panics(t, func() { parseEnv(cfg, nil) })
}
