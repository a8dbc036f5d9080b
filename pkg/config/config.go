package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Stream    StreamConfig    `mapstructure:"stream"`
	History   HistoryConfig   `mapstructure:"history"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile string `mapstructure:"log_file"`
	Persist bool   `mapstructure:"persist"`
	Level   string `mapstructure:"level"`
}

// ServerConfig holds the spacebot daemon API endpoint configuration
type ServerConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"-"`
	TimeoutStr string        `mapstructure:"timeout"` // For parsing string duration
}

// StreamConfig holds event stream configuration
type StreamConfig struct {
	ReconnectDelay    time.Duration `mapstructure:"-"`
	ReconnectDelayStr string        `mapstructure:"reconnect_delay"` // For parsing string duration
}

// HistoryConfig holds history snapshot configuration
type HistoryConfig struct {
	Limit int `mapstructure:"limit"`
}

// DashboardConfig holds channel discovery configuration
type DashboardConfig struct {
	RefreshInterval    time.Duration `mapstructure:"-"`
	RefreshIntervalStr string        `mapstructure:"refresh_interval"` // For parsing string duration
}

// Global config instance
var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	// Set defaults first
	setDefaults()

	// Configure viper
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Set config search paths
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}
		dashCfgHome := filepath.Join(xdgConfigHome, "spacebot-dash")

		viper.AddConfigPath("./.spacebot-dash") // Check project directory first
		viper.AddConfigPath(dashCfgHome)        // Then check XDG config location
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings.yaml")
	}

	// Enable environment variable support
	viper.AutomaticEnv()
	bindEnvironmentVariables()

	// Read config file if it exists; defaults carry the session otherwise
	_ = viper.ReadInConfig()

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Post-process durations (viper doesn't handle time.Duration directly)
	if err := processDurations(cfg); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	return cfg, nil
}

// setDefaults sets all default configuration values
func setDefaults() {
	// Daemon API defaults
	viper.SetDefault("server.url", "http://127.0.0.1:3900")
	viper.SetDefault("server.timeout", "30s")

	// Event stream defaults
	viper.SetDefault("stream.reconnect_delay", "2s")

	// History snapshot defaults
	viper.SetDefault("history.limit", 50)

	// Channel discovery defaults
	viper.SetDefault("dashboard.refresh_interval", "10s")

	// Logging defaults
	viper.SetDefault("logging.log_file", "./.spacebot-dash/system.log")
	viper.SetDefault("logging.persist", false)
	viper.SetDefault("logging.level", "info")
}

// bindEnvironmentVariables binds specific environment variables to Viper keys
func bindEnvironmentVariables() {
	viper.BindEnv("server.url", "SPACEBOT_DASH_SERVER_URL")
	viper.BindEnv("server.timeout", "SPACEBOT_DASH_SERVER_TIMEOUT")
	viper.BindEnv("stream.reconnect_delay", "SPACEBOT_DASH_RECONNECT_DELAY")
	viper.BindEnv("history.limit", "SPACEBOT_DASH_HISTORY_LIMIT")
	viper.BindEnv("dashboard.refresh_interval", "SPACEBOT_DASH_REFRESH_INTERVAL")
	viper.BindEnv("logging.log_file", "SPACEBOT_DASH_LOG_FILE")
	viper.BindEnv("logging.level", "SPACEBOT_DASH_LOG_LEVEL")
	viper.BindEnv("logging.persist", "SPACEBOT_DASH_LOG_PERSIST")
}

// processDurations converts string durations to time.Duration
func processDurations(cfg *Config) error {
	if cfg.Server.TimeoutStr != "" {
		d, err := time.ParseDuration(cfg.Server.TimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid server.timeout: %w", err)
		}
		cfg.Server.Timeout = d
	} else if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	if cfg.Stream.ReconnectDelayStr != "" {
		d, err := time.ParseDuration(cfg.Stream.ReconnectDelayStr)
		if err != nil {
			return fmt.Errorf("invalid stream.reconnect_delay: %w", err)
		}
		cfg.Stream.ReconnectDelay = d
	} else if cfg.Stream.ReconnectDelay == 0 {
		cfg.Stream.ReconnectDelay = 2 * time.Second
	}

	if cfg.Dashboard.RefreshIntervalStr != "" {
		d, err := time.ParseDuration(cfg.Dashboard.RefreshIntervalStr)
		if err != nil {
			return fmt.Errorf("invalid dashboard.refresh_interval: %w", err)
		}
		cfg.Dashboard.RefreshInterval = d
	} else if cfg.Dashboard.RefreshInterval == 0 {
		cfg.Dashboard.RefreshInterval = 10 * time.Second
	}

	return nil
}

// GetConfigFileUsed returns the path to the config file being used
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// BuildSettingsPath returns a path inside the settings directory
func BuildSettingsPath(filename string) string {
	return filepath.Join("./.spacebot-dash", filename)
}
