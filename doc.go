// Package svchost hosts a long-running unit of work and drives it through
// its lifecycle: create, start, run, pause and continue, stop, restart and
// unload. Failures in any step move the service to a terminal Failed state.
//
// # Basic Usage
//
// Describe the service with a [service.Builder], then run it:
//
//	builder := service.NewDelegateBuilder(
//	    func(s service.HostSettings) (*Worker, error) { return NewWorker(s.Params) },
//	    (*Worker).Start,
//	    (*Worker).Stop,
//	)
//
//	h, err := svchost.New(svchost.Config{
//	    Settings: service.HostSettings{Name: "billing"},
//	}, builder)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := h.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Run returns when ctx is canceled and the service has stopped and
// unloaded, or when the service reaches Failed on its own.
//
// # Notifications
//
// The host publishes lifecycle notifications (ServiceStarting,
// ServiceStopping, ServiceFault, ...) to every channel registered with
// [WithChannel], and optionally to the log ([WithNotificationLog]), a
// webhook ([WithWebhook]) and Prometheus ([WithMetrics]).
//
// # Plugins
//
// Plugins run alongside the service and may drive it through a
// [Controller]:
//
//	import "github.com/bft-labs/svchost/plugins/configwatcher"
//
//	h, err := svchost.New(cfg, builder,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Paths: []string{"/etc/billing/config.toml"},
//	    }),
//	)
package svchost
