package svchost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bft-labs/svchost/internal/adapters/channel"
	httpAdapter "github.com/bft-labs/svchost/internal/adapters/http"
	"github.com/bft-labs/svchost/internal/adapters/metrics"
	"github.com/bft-labs/svchost/internal/app"
	"github.com/bft-labs/svchost/internal/domain"
	"github.com/bft-labs/svchost/pkg/lifecycle"
	"github.com/bft-labs/svchost/pkg/log"
	"github.com/bft-labs/svchost/pkg/service"
)

// Errors returned by a Host.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrServiceFaulted  = domain.ErrServiceFaulted
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrServiceExited   = domain.ErrServiceExited
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

// DefaultShutdownTimeout bounds how long Stop waits for the service to stop
// and unload.
const DefaultShutdownTimeout = app.ShutdownTimeout

// Config describes the hosted service.
type Config struct {
	Settings        service.HostSettings
	UnmatchedPolicy lifecycle.UnmatchedPolicy
	ShutdownTimeout time.Duration
}

// Host runs one service built by a service.Builder through its lifecycle.
// Use New to create it, then Start and Stop, or Run.
type Host struct {
	cfg        Config
	opts       options
	logger     log.Logger
	controller *app.Controller
	plugins    []Plugin
	collector  *metrics.Collector
	webhook    *httpAdapter.Webhook

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// New creates a host for the service that builder constructs. The service
// is not created until Start.
func New(cfg Config, builder service.Builder, opts ...Option) (*Host, error) {
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}

	h := &Host{
		cfg:     cfg,
		opts:    o,
		logger:  o.logger,
		plugins: o.plugins,
		done:    make(chan struct{}),
	}

	sinks := append([]lifecycle.Channel{}, o.channels...)
	if o.logEvents {
		sinks = append(sinks, channel.NewLogging(o.logger))
	}
	if o.webhook != nil {
		h.webhook = httpAdapter.NewWebhook(o.webhook.url, o.webhook.client,
			httpAdapter.WithTimeout(o.webhook.timeout),
			httpAdapter.WithBufferSize(o.webhook.buffer),
			httpAdapter.WithLogger(o.logger),
		)
		sinks = append(sinks, h.webhook)
	}
	var sink lifecycle.Channel = channel.NewFanout(sinks...)

	ctrlOpts := []app.Option{app.WithLogger(o.logger)}
	for _, e := range o.emitters {
		ctrlOpts = append(ctrlOpts, app.WithEventEmitter(e))
	}
	if o.metrics != nil {
		h.collector = metrics.NewCollector(*o.metrics)
		sink = h.collector.Channel(sink)
		ctrlOpts = append(ctrlOpts, app.WithEventEmitter(h.collector.ForService(cfg.Settings.Name)))
	}

	controller, err := app.NewController(app.Config{
		Settings:        cfg.Settings,
		UnmatchedPolicy: cfg.UnmatchedPolicy,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, builder, sink, ctrlOpts...)
	if err != nil {
		h.closeWebhook()
		return nil, err
	}
	h.controller = controller

	return h, nil
}

// Start initializes plugins and runs the service in the background. It
// returns once the create event is queued. The service is stopped when ctx
// is canceled or Stop is called.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return ErrAlreadyRunning
	}
	h.started = true

	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	pluginCfg := PluginConfig{
		ServiceName: h.controller.Name(),
		Controller:  h.controller,
		Logger:      h.logger,
	}
	for i, p := range h.plugins {
		if err := initPlugin(runCtx, p, pluginCfg); err != nil {
			h.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			h.shutdownPlugins(h.plugins[:i])
			h.closeWebhook()
			h.err = err
			close(h.done)
			return err
		}
		h.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	go h.run(runCtx)
	return nil
}

func (h *Host) run(ctx context.Context) {
	err := h.controller.Run(ctx)
	if err != nil {
		h.logger.Error("service host stopped", log.Err(err))
	}

	h.shutdownPlugins(h.plugins)
	h.closeWebhook()

	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// Stop requests an orderly stop of the service and waits for the host to
// finish. It returns nil when the service completed, an error wrapping
// ErrServiceFaulted when it failed and ErrShutdownTimeout when it did not
// stop in time.
func (h *Host) Stop() error {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return ErrNotRunning
	}
	cancel := h.cancel
	h.mu.Unlock()

	cancel()
	return h.Wait()
}

// Wait blocks until the host finishes and returns its result.
func (h *Host) Wait() error {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Done is closed when the host has finished.
func (h *Host) Done() <-chan struct{} { return h.done }

// Run starts the host and blocks until ctx is canceled or the service
// reaches a terminal state.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return h.Stop()
	case <-h.done:
		return h.Wait()
	}
}

// Name returns the service name.
func (h *Host) Name() string { return h.controller.Name() }

// State returns the current lifecycle state.
func (h *Host) State() lifecycle.State { return h.controller.State() }

// Restart requests a stop, rebuild and start of the running service.
func (h *Host) Restart() { h.controller.Restart() }

// Pause requests a pause of the running service.
func (h *Host) Pause() { h.controller.Pause() }

// Continue requests that a paused service continue.
func (h *Host) Continue() { h.controller.Continue() }

// Notify queues a completion event reported by the service, such as
// lifecycle.ServiceRunning after a start that returned false.
func (h *Host) Notify(msg lifecycle.Message) { h.controller.Notify(msg) }

// MetricsHandler serves Prometheus metrics. It returns nil unless the host
// was created WithMetrics.
func (h *Host) MetricsHandler() http.Handler {
	if h.collector == nil {
		return nil
	}
	return h.collector.Handler()
}

func (h *Host) shutdownPlugins(plugins []Plugin) {
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.pluginGrace)
	defer cancel()

	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := shutdownPlugin(ctx, p); err != nil {
			h.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			h.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
}

func (h *Host) closeWebhook() {
	if h.webhook != nil {
		h.webhook.Close()
	}
}

func initPlugin(ctx context.Context, p Plugin, cfg PluginConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Initialize(ctx, cfg)
}

func shutdownPlugin(ctx context.Context, p Plugin) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Shutdown(ctx)
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"service":   {service.Version, service.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible reports whether version >= minVersion, both in
// "major.minor.patch" form.
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}

// IsFaulted reports whether err came from a service that ended in Failed.
func IsFaulted(err error) bool {
	return errors.Is(err, ErrServiceFaulted)
}
