// Package metrics exposes lifecycle activity as Prometheus metrics: the
// notifications a host publishes, the transitions its machine takes, the
// current state and the events it ignored.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/svchost/pkg/lifecycle"
)

// Collector owns a private registry with the lifecycle metrics.
type Collector struct {
	registry *prometheus.Registry

	notifications *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	unmatched     *prometheus.CounterVec
	faults        *prometheus.CounterVec
	state         *prometheus.GaugeVec
}

// NewCollector creates a collector. An empty namespace defaults to "svchost".
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "svchost"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "notifications_total",
			Help:      "Lifecycle notifications published, by kind",
		},
		[]string{"service", "kind"},
	)

	c.transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "transitions_total",
			Help:      "State changes taken by the lifecycle machine",
		},
		[]string{"service", "from", "to"},
	)

	c.unmatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "unmatched_events_total",
			Help:      "Events delivered in a state that has no handler for them",
		},
		[]string{"service", "state", "event"},
	)

	c.faults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "faults_total",
			Help:      "Service faults published",
		},
		[]string{"service"},
	)

	c.state = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "state",
			Help:      "Current lifecycle state (1 for the active state, 0 otherwise)",
		},
		[]string{"service", "state"},
	)

	c.registry.MustRegister(
		c.notifications,
		c.transitions,
		c.unmatched,
		c.faults,
		c.state,
		prometheus.NewGoCollector(),
	)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Channel wraps next so every message sent through it is counted first.
func (c *Collector) Channel(next lifecycle.Channel) lifecycle.Channel {
	return lifecycle.ChannelFunc(func(msg lifecycle.Message) {
		c.notifications.WithLabelValues(msg.ServiceName(), msg.Kind().String()).Inc()
		if msg.Kind() == lifecycle.KindServiceFault {
			c.faults.WithLabelValues(msg.ServiceName()).Inc()
		}
		if next != nil {
			next.Send(msg)
		}
	})
}

// ForService returns an observer for the named service's machine. It
// implements lifecycle.EventEmitter and lifecycle.UnmatchedEmitter.
func (c *Collector) ForService(name string) *ServiceObserver {
	o := &ServiceObserver{c: c, name: name}
	o.setState(lifecycle.Initial)
	return o
}

// ServiceObserver records transitions of one service.
type ServiceObserver struct {
	c    *Collector
	name string
}

func (o *ServiceObserver) OnStateChange(previous, current lifecycle.State, _ string) {
	o.c.transitions.WithLabelValues(o.name, previous.String(), current.String()).Inc()
	o.setState(current)
}

func (o *ServiceObserver) OnUnmatched(state lifecycle.State, event lifecycle.Kind) {
	o.c.unmatched.WithLabelValues(o.name, state.String(), event.String()).Inc()
}

func (o *ServiceObserver) setState(current lifecycle.State) {
	for _, s := range lifecycle.States() {
		v := 0.0
		if s == current {
			v = 1
		}
		o.c.state.WithLabelValues(o.name, s.String()).Set(v)
	}
}

var (
	_ lifecycle.EventEmitter     = (*ServiceObserver)(nil)
	_ lifecycle.UnmatchedEmitter = (*ServiceObserver)(nil)
)
