package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (SVCHOST_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", os.Getenv("SVCHOST_NAME"), &cfg.Name)
	s.setString("display-name", os.Getenv("SVCHOST_DISPLAY_NAME"), &cfg.DisplayName)
	s.setString("description", os.Getenv("SVCHOST_DESCRIPTION"), &cfg.Description)
	s.setString("command", os.Getenv("SVCHOST_COMMAND"), &cfg.Command)
	s.setString("dir", os.Getenv("SVCHOST_DIR"), &cfg.Dir)
	s.setString("unmatched", os.Getenv("SVCHOST_UNMATCHED_POLICY"), &cfg.UnmatchedPolicy)
	s.setString("log-level", os.Getenv("SVCHOST_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("SVCHOST_LOG_FORMAT"), &cfg.LogFormat)
	s.setString("webhook-url", os.Getenv("SVCHOST_WEBHOOK_URL"), &cfg.WebhookURL)
	s.setString("metrics-addr", os.Getenv("SVCHOST_METRICS_ADDR"), &cfg.MetricsAddr)

	s.setListFromString("watch", os.Getenv("SVCHOST_WATCH"), &cfg.WatchPaths)

	if err := s.setDuration("debounce", os.Getenv("SVCHOST_DEBOUNCE"), &cfg.Debounce); err != nil {
		return err
	}
	if err := s.setDuration("stop-timeout", os.Getenv("SVCHOST_STOP_TIMEOUT"), &cfg.StopTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("SVCHOST_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("webhook-timeout", os.Getenv("SVCHOST_WEBHOOK_TIMEOUT"), &cfg.WebhookTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("event-buffer", os.Getenv("SVCHOST_EVENT_BUFFER"), &cfg.EventBuffer); err != nil {
		return err
	}

	s.setBoolFromString("log-events", os.Getenv("SVCHOST_LOG_EVENTS"), &cfg.LogEvents)

	return nil
}
