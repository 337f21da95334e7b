package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Untethered configuration
type Config struct {
	Upload  UploadConfig  `mapstructure:"upload"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Logging LoggingConfig `mapstructure:"logging"`
	Paths   PathsConfig   `mapstructure:"paths"`
}

// UploadConfig controls upload acknowledgment behavior
type UploadConfig struct {
	// TimeoutSeconds is how long to wait for an upload acknowledgment
	// before reporting a timeout (default: 30)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// ConnectionTestTimeoutSeconds is the deadline for connectivity
	// probes (default: 5)
	ConnectionTestTimeoutSeconds int `mapstructure:"connection_test_timeout_seconds"`
	// MaxPayloadMB is the largest payload accepted for upload, in
	// megabytes (default: 100)
	MaxPayloadMB int `mapstructure:"max_payload_mb"`
}

// QueueConfig controls priority queue behavior
type QueueConfig struct {
	// DefaultPriority is the bucket for sessions queued without an
	// explicit priority: "high", "medium", or "low" (default: "medium")
	DefaultPriority string `mapstructure:"default_priority"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where Untethered stores data
type PathsConfig struct {
	// StateDir is the directory holding the queue state file, the lock
	// file, and logs. If empty, defaults to $XDG_STATE_HOME/untethered
	// (falling back to ~/.local/state/untethered).
	// Supports ~ for home directory expansion.
	StateDir string `mapstructure:"state_dir"`
}

// Timeout returns the upload acknowledgment timeout as a time.Duration
func (c *UploadConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConnectionTestTimeout returns the connectivity probe deadline as a time.Duration
func (c *UploadConfig) ConnectionTestTimeout() time.Duration {
	return time.Duration(c.ConnectionTestTimeoutSeconds) * time.Second
}

// MaxPayloadBytes returns the payload size cap in bytes
func (c *UploadConfig) MaxPayloadBytes() int64 {
	return int64(c.MaxPayloadMB) * 1024 * 1024
}

// ResolveStateDir returns the resolved state directory path.
// If StateDir is empty, it returns the XDG state directory.
// If StateDir starts with ~, it expands to the user's home directory.
func (p *PathsConfig) ResolveStateDir() string {
	if p.StateDir == "" {
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			return filepath.Join(xdg, "untethered")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return ".untethered"
		}
		return filepath.Join(home, ".local", "state", "untethered")
	}

	path := p.StateDir

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Upload: UploadConfig{
			TimeoutSeconds:               30,
			ConnectionTestTimeoutSeconds: 5,
			MaxPayloadMB:                 100,
		},
		Queue: QueueConfig{
			DefaultPriority: "medium",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			StateDir: "", // Empty means use the XDG state directory
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Upload defaults
	viper.SetDefault("upload.timeout_seconds", defaults.Upload.TimeoutSeconds)
	viper.SetDefault("upload.connection_test_timeout_seconds", defaults.Upload.ConnectionTestTimeoutSeconds)
	viper.SetDefault("upload.max_payload_mb", defaults.Upload.MaxPayloadMB)

	// Queue defaults
	viper.SetDefault("queue.default_priority", defaults.Queue.DefaultPriority)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Paths defaults
	viper.SetDefault("paths.state_dir", defaults.Paths.StateDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "untethered")
	}
	// Fall back to ~/.config/untethered
	home, err := os.UserHomeDir()
	if err != nil {
		return ".untethered"
	}
	return filepath.Join(home, ".config", "untethered")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
