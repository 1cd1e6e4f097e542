package svchost

import (
	"time"

	"github.com/bft-labs/svchost/internal/ports"
	"github.com/bft-labs/svchost/pkg/lifecycle"
	"github.com/bft-labs/svchost/pkg/log"
)

// HTTPClient is the interface for making webhook requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Option configures optional behavior of a Host.
type Option func(*options)

type options struct {
	logger      log.Logger
	emitters    []lifecycle.EventEmitter
	channels    []lifecycle.Channel
	plugins     []Plugin
	logEvents   bool
	metrics     *string
	webhook     *webhookOptions
	pluginGrace time.Duration
}

type webhookOptions struct {
	url     string
	client  HTTPClient
	timeout time.Duration
	buffer  int
}

func defaultOptions() options {
	return options{
		logger:      log.NewNoopLogger(),
		pluginGrace: 5 * time.Second,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventEmitter adds an observer of state changes. Emitters that also
// implement lifecycle.UnmatchedEmitter observe unmatched events.
func WithEventEmitter(emitter lifecycle.EventEmitter) Option {
	return func(o *options) {
		o.emitters = append(o.emitters, emitter)
	}
}

// WithChannel adds a sink for lifecycle notifications. Send is called on
// the host goroutine and must not block.
func WithChannel(ch lifecycle.Channel) Option {
	return func(o *options) {
		o.channels = append(o.channels, ch)
	}
}

// WithNotificationLog writes every notification to the host logger.
func WithNotificationLog() Option {
	return func(o *options) {
		o.logEvents = true
	}
}

// WithMetrics enables Prometheus metrics under namespace. They are served
// by Host.MetricsHandler.
func WithMetrics(namespace string) Option {
	return func(o *options) {
		o.metrics = &namespace
	}
}

// WithWebhook POSTs every notification as JSON to url. A nil client uses
// http.DefaultClient; zero timeout and buffer use the adapter defaults.
func WithWebhook(url string, client HTTPClient, timeout time.Duration, buffer int) Option {
	return func(o *options) {
		o.webhook = &webhookOptions{url: url, client: client, timeout: timeout, buffer: buffer}
	}
}

// WithPlugin registers a plugin to be initialized when the host starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
