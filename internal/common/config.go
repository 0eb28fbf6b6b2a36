package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// DefaultConfigFile is loaded from the working directory when no -config flag is given
const DefaultConfigFile = "larder.toml"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Upstream UpstreamConfig `toml:"upstream"`
	Session  SessionConfig  `toml:"session"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Storage  StorageConfig  `toml:"storage"`
	Bridge   BridgeConfig   `toml:"bridge"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
}

// UpstreamConfig describes the list API the session is replayed against
type UpstreamConfig struct {
	BaseURL        string `toml:"base_url" validate:"required,url"`
	UserAgent      string `toml:"user_agent" validate:"required"`
	RequestTimeout string `toml:"request_timeout"` // e.g., "15s" - a hung call is classified transient
	RateLimit      string `toml:"rate_limit"`      // Minimum gap between upstream calls, e.g. "250ms". Empty = unlimited
}

// SessionConfig holds the location of the single authoritative cookie file
type SessionConfig struct {
	Path string `toml:"path" validate:"required"`
}

// MonitorConfig controls the liveness monitor
type MonitorConfig struct {
	Enabled      bool   `toml:"enabled"`
	Interval     string `toml:"interval"`      // e.g., "60s"
	CheckTimeout string `toml:"check_timeout"` // Per-probe bound, independent of request_timeout
	HistoryLimit int    `toml:"history_limit" validate:"min=1"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// BridgeConfig controls the interactive capture run (larder-login)
type BridgeConfig struct {
	LoginURL       string `toml:"login_url" validate:"required,url"`
	Mode           string `toml:"mode" validate:"oneof=handoff local"` // "handoff" posts to the server, "local" writes the session file directly
	HandoffURL     string `toml:"handoff_url" validate:"omitempty,url"`
	HandoffTimeout string `toml:"handoff_timeout"`
	KeepLocalCopy  bool   `toml:"keep_local_copy"` // Save cookies locally when the hand-off fails
	LocalCopyPath  string `toml:"local_copy_path"`
	Headless       bool   `toml:"headless"` // A human has to see the page, so this is for debugging only
	ChromePath     string `toml:"chrome_path"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"` // "stdout", "file"
	Dir        string   `toml:"dir"`    // Log files and crash reports
	TimeFormat string   `toml:"time_format"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8000,
			Host: "localhost",
		},
		Upstream: UpstreamConfig{
			BaseURL:        "https://www.amazon.com",
			UserAgent:      DefaultUserAgent,
			RequestTimeout: "15s",
		},
		Session: SessionConfig{
			Path: "./data/cookies.json",
		},
		Monitor: MonitorConfig{
			Enabled:      true,
			Interval:     "60s",
			CheckTimeout: "20s",
			HistoryLimit: 500,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/checks",
			},
		},
		Bridge: BridgeConfig{
			LoginURL:       "https://www.amazon.com/",
			Mode:           "handoff",
			HandoffURL:     "http://localhost:8000/auth/cookies",
			HandoffTimeout: "15s",
			KeepLocalCopy:  true,
			LocalCopyPath:  "./cookies.json",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			Dir:        "./logs",
			TimeFormat: "15:04:05",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// DefaultUserAgent mimics the Alexa iOS app; the upstream rejects requests without plausible client headers
const DefaultUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 13_5_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 PitanguiBridge/2.2.345247.0-[HARDWARE=iPhone10_4][SOFTWARE=13.5.1]"

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env.
// CLI flags are applied afterwards by ApplyFlagOverrides.
// With no paths, larder.toml in the working directory is used if present.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	if len(paths) == 0 {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			paths = []string{DefaultConfigFile}
		}
	}

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Later files override earlier files
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies LARDER_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("LARDER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("LARDER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if baseURL := os.Getenv("LARDER_UPSTREAM_BASE_URL"); baseURL != "" {
		config.Upstream.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if path := os.Getenv("LARDER_SESSION_PATH"); path != "" {
		config.Session.Path = path
	}
	if level := os.Getenv("LARDER_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if interval := os.Getenv("LARDER_MONITOR_INTERVAL"); interval != "" {
		config.Monitor.Interval = interval
	}
	if enabled := os.Getenv("LARDER_MONITOR_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Monitor.Enabled = b
		}
	}
	if handoff := os.Getenv("LARDER_BRIDGE_HANDOFF_URL"); handoff != "" {
		config.Bridge.HandoffURL = handoff
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks struct constraints and every duration field
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var errs []error
	if c.Bridge.Mode == "handoff" && c.Bridge.HandoffURL == "" {
		errs = append(errs, errors.New("bridge.handoff_url: required when bridge.mode is handoff"))
	}
	for name, value := range map[string]string{
		"upstream.request_timeout": c.Upstream.RequestTimeout,
		"upstream.rate_limit":      c.Upstream.RateLimit,
		"monitor.interval":         c.Monitor.Interval,
		"monitor.check_timeout":    c.Monitor.CheckTimeout,
		"bridge.handoff_timeout":   c.Bridge.HandoffTimeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if c.Monitor.Enabled {
		if err := ValidateMonitorSchedule(c.Monitor.Interval); err != nil {
			errs = append(errs, fmt.Errorf("monitor.interval: %w", err))
		}
	}

	return errors.Join(errs...)
}

// ValidateMonitorSchedule checks the interval yields a usable @every schedule of at least one second
func ValidateMonitorSchedule(interval string) error {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if d < time.Second {
		return fmt.Errorf("interval must be at least 1s, got %s", d)
	}
	if _, err := cron.ParseStandard("@every " + d.String()); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	return nil
}

// RequestTimeout returns the upstream call bound
func (c *Config) RequestTimeout() time.Duration {
	return parseDurationOr(c.Upstream.RequestTimeout, 15*time.Second)
}

// RateLimitInterval returns the minimum gap between upstream calls, zero when unlimited
func (c *Config) RateLimitInterval() time.Duration {
	return parseDurationOr(c.Upstream.RateLimit, 0)
}

// MonitorInterval returns the liveness probe period
func (c *Config) MonitorInterval() time.Duration {
	return parseDurationOr(c.Monitor.Interval, 60*time.Second)
}

// MonitorCheckTimeout returns the bound on a single liveness probe
func (c *Config) MonitorCheckTimeout() time.Duration {
	return parseDurationOr(c.Monitor.CheckTimeout, 20*time.Second)
}

// HandoffTimeout returns the bound on the bridge hand-off POST
func (c *Config) HandoffTimeout() time.Duration {
	return parseDurationOr(c.Bridge.HandoffTimeout, 15*time.Second)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
