package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override defaults and the config file
func LoadFromEnv(cfg *Config) {
	// Database configuration
	if dbPath := os.Getenv("TOMATOMONKEY_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Timer configuration
	if graceDelay := os.Getenv("TOMATOMONKEY_GRACE_DELAY"); graceDelay != "" {
		if seconds, err := strconv.Atoi(graceDelay); err == nil && seconds > 0 {
			cfg.Timer.GraceDelay = time.Duration(seconds) * time.Second
		}
	}

	if maxSession := os.Getenv("TOMATOMONKEY_MAX_SESSION"); maxSession != "" {
		if seconds, err := strconv.ParseInt(maxSession, 10, 64); err == nil && seconds > 0 {
			cfg.Timer.MaxSessionSeconds = seconds
		}
	}

	// Blocker configuration
	if cacheTTL := os.Getenv("TOMATOMONKEY_CACHE_TTL"); cacheTTL != "" {
		if seconds, err := strconv.Atoi(cacheTTL); err == nil && seconds > 0 {
			cfg.Blocker.CacheTTL = time.Duration(seconds) * time.Second
		}
	}

	// Store configuration
	if watchInterval := os.Getenv("TOMATOMONKEY_WATCH_INTERVAL"); watchInterval != "" {
		if millis, err := strconv.Atoi(watchInterval); err == nil && millis > 0 {
			cfg.Store.WatchInterval = time.Duration(millis) * time.Millisecond
		}
	}

	// Daemon configuration
	if pidFile := os.Getenv("TOMATOMONKEY_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	// Web configuration
	if webHost := os.Getenv("TOMATOMONKEY_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("TOMATOMONKEY_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// New creates a new Config with default values, applies the optional config
// file, and loads environment overrides
func New() *Config {
	cfg := Default()
	LoadFromFile(cfg, DefaultConfigPath())
	LoadFromEnv(cfg)
	return cfg
}
