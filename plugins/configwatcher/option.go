package configwatcher

import svchost "github.com/bft-labs/svchost"

// WithConfigWatcher returns a host Option that restarts the service when
// one of cfg.Paths changes.
//
// Usage:
//
//	h, err := svchost.New(cfg, builder,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Paths:         []string{"/etc/billing/config.toml"},
//	        DebounceDelay: time.Second,
//	    }),
//	)
func WithConfigWatcher(cfg Config) svchost.Option {
	return svchost.WithPlugin(New(cfg))
}
