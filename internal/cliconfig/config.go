package cliconfig

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/svchost/pkg/lifecycle"
	"github.com/bft-labs/svchost/pkg/log"
)

// Config holds CLI configuration for svchost.
type Config struct {
	Name        string
	DisplayName string
	Description string

	Command string
	Args    []string
	Dir     string
	Env     []string
	Params  map[string]string

	WatchPaths []string
	Debounce   time.Duration

	StopTimeout     time.Duration
	ShutdownTimeout time.Duration
	UnmatchedPolicy string

	LogLevel  string
	LogFormat string
	LogEvents bool

	WebhookURL     string
	WebhookTimeout time.Duration
	MetricsAddr    string
	EventBuffer    int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Debounce:        500 * time.Millisecond,
		StopTimeout:     10 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		UnmatchedPolicy: "ignore",
		LogLevel:        "info",
		LogFormat:       "console",
		LogEvents:       true,
		WebhookTimeout:  5 * time.Second,
		EventBuffer:     64,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Command == "" {
		return fmt.Errorf("command is required")
	}
	if c.Name == "" {
		c.Name = filepath.Base(c.Command)
	}
	if c.DisplayName == "" {
		c.DisplayName = c.Name
	}

	if c.StopTimeout <= 0 {
		return fmt.Errorf("stop timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if len(c.WatchPaths) > 0 && c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive when watching files")
	}

	if _, err := lifecycle.ParseUnmatchedPolicy(c.UnmatchedPolicy); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := log.ParseFormat(c.LogFormat); err != nil {
		return err
	}

	if c.WebhookURL != "" {
		u, err := url.Parse(c.WebhookURL)
		if err != nil {
			return fmt.Errorf("webhook url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("webhook url must be http or https, got %q", c.WebhookURL)
		}
		if c.WebhookTimeout <= 0 {
			return fmt.Errorf("webhook timeout must be positive")
		}
	}

	if c.EventBuffer < 0 {
		return fmt.Errorf("event buffer must not be negative")
	}

	return nil
}

// Redacted returns a copy of c that is safe to log. Credentials and the
// query string of the webhook URL are masked.
func (c Config) Redacted() Config {
	if c.WebhookURL == "" {
		return c
	}
	u, err := url.Parse(c.WebhookURL)
	if err != nil {
		c.WebhookURL = redacted
		return c
	}
	if u.User != nil {
		u.User = url.User(redacted)
	}
	if u.RawQuery != "" {
		u.RawQuery = redacted
	}
	c.WebhookURL = u.String()
	return c
}

const redacted = "xxxxx"

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setListFromString splits a comma-separated value into dst.
func (s *configSetter) setListFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
