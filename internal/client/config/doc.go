// Package config loads runtime configuration for the gophblog client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables prefixed with GOPHBLOG_, optionally seeded from
//     a dotenv file (.env by default, or the path given with -env).
//  3. Optional JSON file selected with -c or -config.
//  4. Command-line flags, which override everything above.
//
// Supported flags
//
//	-a string   base URL of the Post API
//	-d string   path of the local SQLite database
//	-t int      request timeout (seconds)
//	-ttl int    post cache time-to-live (seconds)
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations accept strings like "10s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "http://localhost:3001",
//	  "database_path": "gophblog.db",
//	  "request_timeout": "10s",
//	  "cache_ttl": "60s",
//	  "search_debounce": "500ms",
//	  "requests_per_second": 10,
//	  "burst": 20,
//	  "page_size": 9,
//	  "log_level": "info",
//	  "log_format": "text"
//	}
package config
