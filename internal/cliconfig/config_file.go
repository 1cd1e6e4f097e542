package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Name            string            `toml:"name"`
	DisplayName     string            `toml:"display_name"`
	Description     string            `toml:"description"`
	Command         string            `toml:"command"`
	Args            []string          `toml:"args"`
	Dir             string            `toml:"dir"`
	Env             []string          `toml:"env"`
	Params          map[string]string `toml:"params"`
	WatchPaths      []string          `toml:"watch"`
	Debounce        string            `toml:"debounce"`
	StopTimeout     string            `toml:"stop_timeout"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	UnmatchedPolicy string            `toml:"unmatched_policy"`
	LogLevel        string            `toml:"log_level"`
	LogFormat       string            `toml:"log_format"`
	LogEvents       *bool             `toml:"log_events"`
	WebhookURL      string            `toml:"webhook_url"`
	WebhookTimeout  string            `toml:"webhook_timeout"`
	MetricsAddr     string            `toml:"metrics_addr"`
	EventBuffer     int               `toml:"event_buffer"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.svchost/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".svchost", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", fc.Name, &cfg.Name)
	s.setString("display-name", fc.DisplayName, &cfg.DisplayName)
	s.setString("description", fc.Description, &cfg.Description)
	s.setString("command", fc.Command, &cfg.Command)
	s.setString("dir", fc.Dir, &cfg.Dir)
	s.setString("unmatched", fc.UnmatchedPolicy, &cfg.UnmatchedPolicy)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("webhook-url", fc.WebhookURL, &cfg.WebhookURL)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	s.setStrings("arg", fc.Args, &cfg.Args)
	s.setStrings("env", fc.Env, &cfg.Env)
	s.setStrings("watch", fc.WatchPaths, &cfg.WatchPaths)

	if len(fc.Params) > 0 {
		if cfg.Params == nil {
			cfg.Params = make(map[string]string, len(fc.Params))
		}
		for k, v := range fc.Params {
			cfg.Params[k] = v
		}
	}

	if err := s.setDuration("debounce", fc.Debounce, &cfg.Debounce); err != nil {
		return err
	}
	if err := s.setDuration("stop-timeout", fc.StopTimeout, &cfg.StopTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("webhook-timeout", fc.WebhookTimeout, &cfg.WebhookTimeout); err != nil {
		return err
	}

	s.setInt("event-buffer", fc.EventBuffer, &cfg.EventBuffer)
	s.setBool("log-events", fc.LogEvents, &cfg.LogEvents)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
