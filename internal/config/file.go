package config

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

// yamlConfig mirrors the subset of Config exposed through the config file.
// Durations are plain integers in the unit named by the field.
type yamlConfig struct {
	DatabasePath        string `yaml:"database_path"`
	GraceDelaySeconds   int    `yaml:"grace_delay_seconds"`
	MaxSessionSeconds   int64  `yaml:"max_session_seconds"`
	CacheTTLSeconds     int    `yaml:"cache_ttl_seconds"`
	StalenessSeconds    int    `yaml:"staleness_threshold_seconds"`
	WatchIntervalMillis int    `yaml:"watch_interval_millis"`
	PIDFile             string `yaml:"pid_file"`
	WebHost             string `yaml:"web_host"`
	WebPort             int    `yaml:"web_port"`
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, "tomatomonkey", configFileName)
}

// LoadFromFile applies settings from a YAML config file, if it exists.
// A missing file is not an error; a malformed one is logged and skipped.
func LoadFromFile(cfg *Config, path string) {
	if path == "" {
		return
	}

	rawData, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("config: failed to read %s: %v", path, err)
		}
		return
	}

	var fileData yamlConfig
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		log.Printf("config: failed to parse %s: %v", path, err)
		return
	}

	applyFileConfig(cfg, fileData)
}

func applyFileConfig(cfg *Config, fileData yamlConfig) {
	if fileData.DatabasePath != "" {
		cfg.Database.Path = fileData.DatabasePath
	}
	if fileData.GraceDelaySeconds > 0 {
		cfg.Timer.GraceDelay = time.Duration(fileData.GraceDelaySeconds) * time.Second
	}
	if fileData.MaxSessionSeconds > 0 {
		cfg.Timer.MaxSessionSeconds = fileData.MaxSessionSeconds
	}
	if fileData.CacheTTLSeconds > 0 {
		cfg.Blocker.CacheTTL = time.Duration(fileData.CacheTTLSeconds) * time.Second
	}
	if fileData.StalenessSeconds > 0 {
		cfg.Blocker.StalenessThreshold = time.Duration(fileData.StalenessSeconds) * time.Second
	}
	if fileData.WatchIntervalMillis > 0 {
		cfg.Store.WatchInterval = time.Duration(fileData.WatchIntervalMillis) * time.Millisecond
	}
	if fileData.PIDFile != "" {
		cfg.Daemon.PIDFile = fileData.PIDFile
	}
	if fileData.WebHost != "" {
		cfg.Web.Host = fileData.WebHost
	}
	if fileData.WebPort > 0 && fileData.WebPort <= 65535 {
		cfg.Web.Port = fileData.WebPort
	}
}
