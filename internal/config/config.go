package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Timer configuration
	Timer TimerConfig

	// Blocker configuration
	Blocker BlockerConfig

	// Store change-watcher configuration
	Store StoreConfig

	// Daemon process configuration
	Daemon DaemonConfig

	// Web server configuration
	Web WebConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string // Path to SQLite database file
}

// TimerConfig holds focus-session timer configuration
type TimerConfig struct {
	TickInterval      time.Duration // Countdown tick period
	GraceDelay        time.Duration // Delay before completed resets to idle
	MaxSessionSeconds int64         // Upper bound for session durations
}

// BlockerConfig holds blocking-engine configuration
type BlockerConfig struct {
	CacheTTL           time.Duration // Per-URL decision cache lifetime
	StalenessThreshold time.Duration // Early-check snapshot age before re-read
	StaleRetryWait     time.Duration // Early-check wait before the re-read
}

// StoreConfig holds shared-store change watcher configuration
type StoreConfig struct {
	WatchInterval time.Duration // How often to poll for remote changes
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string // Path to PID file for daemon management
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string // Host to bind web server to
	Port int    // Port for web server
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/tomatomonkey/tomatomonkey.db
		},
		Timer: TimerConfig{
			TickInterval:      time.Second,
			GraceDelay:        3 * time.Second,
			MaxSessionSeconds: 7200,
		},
		Blocker: BlockerConfig{
			CacheTTL:           3 * time.Minute,
			StalenessThreshold: 5 * time.Second,
			StaleRetryWait:     150 * time.Millisecond,
		},
		Store: StoreConfig{
			WatchInterval: time.Second,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/tomatomonkey-%d.pid", os.Getuid()),
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid(), // Default port based on user ID
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Timer.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}

	if c.Timer.GraceDelay <= 0 {
		return fmt.Errorf("grace delay must be positive")
	}

	if c.Timer.MaxSessionSeconds < 1 {
		return fmt.Errorf("max session seconds must be at least 1")
	}

	if c.Blocker.CacheTTL <= 0 {
		return fmt.Errorf("blocker cache TTL must be positive")
	}

	if c.Blocker.StalenessThreshold <= 0 {
		return fmt.Errorf("staleness threshold must be positive")
	}

	if c.Store.WatchInterval <= 0 {
		return fmt.Errorf("store watch interval must be positive")
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Timer:
    Tick Interval: %v
    Grace Delay: %v
    Max Session: %ds
  Blocker:
    Cache TTL: %v
    Staleness Threshold: %v
    Stale Retry Wait: %v
  Store:
    Watch Interval: %v
  Daemon:
    PID File: %s
  Web:
    Host: %s
    Port: %d`,
		c.Database.Path,
		c.Timer.TickInterval,
		c.Timer.GraceDelay,
		c.Timer.MaxSessionSeconds,
		c.Blocker.CacheTTL,
		c.Blocker.StalenessThreshold,
		c.Blocker.StaleRetryWait,
		c.Store.WatchInterval,
		c.Daemon.PIDFile,
		c.Web.Host,
		c.Web.Port,
	)
}
