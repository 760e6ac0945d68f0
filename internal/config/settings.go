package config

import (
	"fmt"
	"os"
	"strings"
)

// SettingSource represents where an effective setting comes from.
type SettingSource string

const (
	SourceEnv     SettingSource = "env"
	SourceConfig  SettingSource = "config"
	SourceDefault SettingSource = "default"
)

// SettingStatus describes one effective setting for `refinery status` and
// the dashboard's settings endpoint.
type SettingStatus struct {
	Key    string        `json:"key"`
	Source SettingSource `json:"source"`
	IsSet  bool          `json:"is_set"`
	Value  string        `json:"value,omitempty"` // masked for sensitive keys
}

// CheckSettings reports the settings an operator most often needs to verify.
func CheckSettings(cfg *Config) []SettingStatus {
	def := Default()
	return []SettingStatus{
		checkSetting(cfg, "backend.base_url", cfg.Backend.BaseURL, def.Backend.BaseURL, false),
		checkSetting(cfg, "backend.timeout", cfg.Backend.Timeout.String(), def.Backend.Timeout.String(), false),
		checkSetting(cfg, "ui.default_statement", cfg.UI.DefaultStatement, def.UI.DefaultStatement, false),
		checkSetting(cfg, "server.port", fmt.Sprint(cfg.Server.Port), fmt.Sprint(def.Server.Port), false),
		checkSetting(cfg, "feed.user_agent", cfg.Feed.UserAgent, def.Feed.UserAgent, true),
		checkSetting(cfg, "feed.symbols", strings.Join(cfg.Feed.Symbols, ","), "", false),
	}
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// checkSetting works out where a value came from.
func checkSetting(cfg *Config, key, value, defaultValue string, sensitive bool) SettingStatus {
	status := SettingStatus{
		Key:   key,
		IsSet: value != "",
		Value: value,
	}
	if sensitive && value != "" {
		status.Value = maskValue(value)
	}

	switch {
	case os.Getenv(EnvVar(key)) != "":
		status.Source = SourceEnv
	case cfg.File() != "" && value != defaultValue:
		status.Source = SourceConfig
	default:
		status.Source = SourceDefault
	}
	return status
}

// maskValue masks a value for display, showing only the first and last 3 chars.
func maskValue(v string) string {
	if len(v) <= 8 {
		return "***"
	}
	return v[:3] + "..." + v[len(v)-3:]
}
