// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/stream-relay/config.toml",
	"configs/config.toml",
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config       string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host         string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port         int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	AllowedHosts string `kong:"help='Comma-separated upstream host allowlist; empty allows all (overrides config).',env='ALLOWED_HOSTS'"`
	LogLevel     string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Upstream UpstreamConfig `toml:"upstream"`
	Poll     PollConfig     `toml:"poll"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"` // 0 means "use default" (3000); TOML cannot distinguish 0 from unset
	BodyMaxBytes int64  `toml:"body_max_bytes"`
}

// UpstreamConfig holds outbound connection settings.
type UpstreamConfig struct {
	// AllowedHosts restricts which hosts may be fetched. Empty allows all.
	AllowedHosts []string `toml:"allowed_hosts"`
	// RelayTimeoutSeconds bounds a whole relay-mode fetch including body
	// streaming. 0 disables the bound, matching the historical behavior of
	// relaying indefinitely long upstream streams.
	RelayTimeoutSeconds int `toml:"relay_timeout_seconds"`
	IdleConnections     int `toml:"idle_connections"`
}

// PollConfig holds poll-to-stream settings.
type PollConfig struct {
	// DefaultIntervalMS is the poll spacing used when the client sends no
	// usable interval parameter.
	DefaultIntervalMS int `toml:"default_interval_ms"`
	// TimeoutMS bounds one poll-mode upstream fetch.
	TimeoutMS int `toml:"timeout_ms"`
	// BodyMaxBytes caps how much of a polled response body is read.
	BodyMaxBytes int64 `toml:"body_max_bytes"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file (when one exists) and applies CLI
// overrides. When no explicit path is given (via --config or CONFIG_PATH),
// it searches /etc/stream-relay/config.toml then configs/config.toml; if
// neither exists the relay runs on defaults and environment overrides
// alone, which is the common deployment.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.AllowedHosts != "" {
		c.Upstream.AllowedHosts = splitHosts(cli.AllowedHosts)
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

// splitHosts parses a comma-separated host list, trimming whitespace and
// dropping empty entries.
func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func (c *Config) validate() error {
	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.RelayTimeoutSeconds < 0 {
		return fmt.Errorf("upstream.relay_timeout_seconds must be non-negative; got %d", c.Upstream.RelayTimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Poll.DefaultIntervalMS < 0 {
		return fmt.Errorf("poll.default_interval_ms must be non-negative; got %d", c.Poll.DefaultIntervalMS)
	}
	if c.Poll.TimeoutMS < 0 {
		return fmt.Errorf("poll.timeout_ms must be non-negative; got %d", c.Poll.TimeoutMS)
	}
	if c.Poll.BodyMaxBytes < 0 {
		return fmt.Errorf("poll.body_max_bytes must be non-negative; got %d", c.Poll.BodyMaxBytes)
	}

	// Allowlist entries must be bare hostnames, not URLs.
	for _, h := range c.Upstream.AllowedHosts {
		if h == "" {
			return fmt.Errorf("upstream.allowed_hosts contains an empty entry")
		}
		if strings.ContainsAny(h, "/: ") {
			return fmt.Errorf("upstream.allowed_hosts entry %q must be a bare hostname", h)
		}
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range []string{"/proxy", "/sse", "/ping", "/status", "/healthz"} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, TimeoutMS, etc.), zero means "unset" because TOML
// cannot distinguish between an explicit 0 and an omitted key — with the one
// deliberate exception of upstream.relay_timeout_seconds, where 0 means
// "no bound".
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 1024 * 1024 // 1 MB; inbound requests carry no payload
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Poll.DefaultIntervalMS == 0 {
		c.Poll.DefaultIntervalMS = 200
	}
	if c.Poll.TimeoutMS == 0 {
		c.Poll.TimeoutMS = 5000
	}
	if c.Poll.BodyMaxBytes == 0 {
		c.Poll.BodyMaxBytes = 1024 * 1024 // 1 MiB
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
