package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "GOPHBLOG_"

// parseEnv overlays cfg with GOPHBLOG_* environment variables. A dotenv
// file is loaded first without overriding variables already set; a missing
// default .env is ignored, a missing explicit -env file is not.
func parseEnv(cfg *Config, args []string) {
	if path := flagx.EnvFileFlag(args); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if v := getEnv("API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := getEnv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := getEnv("REQUEST_TIMEOUT"); v != "" {
		cfg.RequestTimeout = mustDuration(v)
	}
	if v := getEnv("CACHE_TTL"); v != "" {
		cfg.CacheTTL = mustDuration(v)
	}
	if v := getEnv("SEARCH_DEBOUNCE"); v != "" {
		cfg.SearchDebounce = mustDuration(v)
	}
	if v := getEnv("REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			panic(err)
		}
		cfg.RequestsPerSecond = rps
	}
	if v := getEnv("BURST"); v != "" {
		cfg.Burst = mustInt(v)
	}
	if v := getEnv("PAGE_SIZE"); v != "" {
		cfg.PageSize = mustInt(v)
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic(err)
	}
	return n
}
