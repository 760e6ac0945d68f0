// Package config handles configuration loading for refinery.
// It supports YAML config files, a .env file, and environment variable overrides.
package config

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/signalrefinery/refinery/pkg/models"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "REFINERY"

// Config represents the complete application configuration.
type Config struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend" json:"backend"`
	UI      UIConfig      `mapstructure:"ui"      yaml:"ui"      json:"ui"`
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"  json:"server"`
	Feed    FeedConfig    `mapstructure:"feed"    yaml:"feed"    json:"feed"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`

	file string
}

// BackendConfig locates the filings API.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"  yaml:"timeout"  json:"timeout"`
}

// UIConfig holds presentation settings shared by the CLI and the dashboard.
type UIConfig struct {
	DateLayout       string        `mapstructure:"date_layout"       yaml:"date_layout"       json:"date_layout"` // Go time layout
	DefaultStatement string        `mapstructure:"default_statement" yaml:"default_statement" json:"default_statement"`
	HealthInterval   time.Duration `mapstructure:"health_interval"   yaml:"health_interval"   json:"health_interval"`
}

// ServerConfig holds dashboard server settings.
type ServerConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// FeedConfig holds EDGAR filing watcher settings.
type FeedConfig struct {
	Enabled       bool          `mapstructure:"enabled"         yaml:"enabled"         json:"enabled"`
	UserAgent     string        `mapstructure:"user_agent"      yaml:"user_agent"      json:"-"` // SEC requires "name email"
	Interval      time.Duration `mapstructure:"interval"        yaml:"interval"        json:"interval"`
	RatePerSecond float64       `mapstructure:"rate_per_second" yaml:"rate_per_second" json:"rate_per_second"`
	Symbols       []string      `mapstructure:"symbols"         yaml:"symbols"         json:"symbols"`
	BaseURL       string        `mapstructure:"base_url"        yaml:"base_url"        json:"base_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// Addr returns the dashboard listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// File returns the config file that was read, or "" when only defaults and
// environment were used.
func (c *Config) File() string {
	return c.file
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/refinery.yaml (project root)
//  2. ~/.refinery/refinery.yaml (home directory)
//  3. /etc/refinery/refinery.yaml (system)
//
// A .env file in the working directory is loaded first; it never overrides
// variables already set in the process environment.
// Environment variables override config file values.
// Format: REFINERY_<SECTION>_<KEY>, e.g., REFINERY_BACKEND_BASE_URL
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("refinery")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".refinery"))
	v.AddConfigPath("/etc/refinery")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "error reading config file")
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, eris.Wrapf(err, "error reading config file %s", path)
	}
	return decode(v)
}

// Default returns the configuration made of defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "error unmarshaling config")
	}
	cfg.file = v.ConfigFileUsed()
	// Comma-separated lists from the environment arrive as a single element.
	cfg.Feed.Symbols = splitList(cfg.Feed.Symbols)
	cfg.Server.CORSOrigins = splitList(cfg.Server.CORSOrigins)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", 30*time.Second)

	// UI defaults
	v.SetDefault("ui.date_layout", "1/2/2006")
	v.SetDefault("ui.default_statement", string(models.IncomeStatement))
	v.SetDefault("ui.health_interval", 30*time.Second)

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	// Feed defaults (SEC fair access allows 10 requests per second)
	v.SetDefault("feed.enabled", false)
	v.SetDefault("feed.user_agent", "")
	v.SetDefault("feed.interval", 10*time.Minute)
	v.SetDefault("feed.rate_per_second", 8.0)
	v.SetDefault("feed.symbols", []string{})
	v.SetDefault("feed.base_url", "https://www.sec.gov/cgi-bin/browse-edgar")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate rejects configurations the application cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return eris.New("backend.base_url must be set")
	}
	if c.Backend.Timeout <= 0 {
		return eris.Errorf("backend.timeout must be positive, got %s", c.Backend.Timeout)
	}
	if _, err := models.ParseStatementType(c.UI.DefaultStatement); err != nil {
		return eris.Wrap(err, "ui.default_statement")
	}
	if c.UI.HealthInterval <= 0 {
		return eris.Errorf("ui.health_interval must be positive, got %s", c.UI.HealthInterval)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Feed.Enabled {
		if c.Feed.Interval <= 0 {
			return eris.Errorf("feed.interval must be positive, got %s", c.Feed.Interval)
		}
		if strings.TrimSpace(c.Feed.UserAgent) == "" {
			return eris.New("feed.user_agent must be set when the feed is enabled")
		}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return eris.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// YAML renders c as YAML with the feed user agent masked.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	if out.Feed.UserAgent != "" {
		out.Feed.UserAgent = maskValue(out.Feed.UserAgent)
	}
	b, err := yaml.Marshal(&out)
	if err != nil {
		return nil, eris.Wrap(err, "marshal config")
	}
	return b, nil
}

// loadDotEnv loads ./.env if present.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
