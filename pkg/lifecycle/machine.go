package lifecycle

import (
	"fmt"

	"github.com/bft-labs/svchost/pkg/log"
)

// UnmatchedPolicy decides what Deliver does with an event that has no
// handler in the current state. The state never changes either way.
type UnmatchedPolicy int

const (
	// IgnoreUnmatched drops the event silently.
	IgnoreUnmatched UnmatchedPolicy = iota
	// LogUnmatched drops the event and logs a warning.
	LogUnmatched
	// RejectUnmatched drops the event and returns ErrUnhandledEvent.
	RejectUnmatched
)

func (p UnmatchedPolicy) String() string {
	switch p {
	case IgnoreUnmatched:
		return "ignore"
	case LogUnmatched:
		return "log"
	case RejectUnmatched:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseUnmatchedPolicy parses "ignore", "log" or "reject".
func ParseUnmatchedPolicy(s string) (UnmatchedPolicy, error) {
	switch s {
	case "", "ignore":
		return IgnoreUnmatched, nil
	case "log":
		return LogUnmatched, nil
	case "reject":
		return RejectUnmatched, nil
	default:
		return IgnoreUnmatched, fmt.Errorf("lifecycle: unknown unmatched policy %q", s)
	}
}

// Option configures optional behavior of a Machine.
type Option func(*options)

type options struct {
	logger    log.Logger
	emitter   EventEmitter
	unmatched UnmatchedEmitter
	policy    UnmatchedPolicy
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventEmitter registers an observer of state changes. If the emitter
// also implements UnmatchedEmitter it observes unmatched events too.
func WithEventEmitter(emitter EventEmitter) Option {
	return func(o *options) {
		o.emitter = emitter
		if u, ok := emitter.(UnmatchedEmitter); ok && o.unmatched == nil {
			o.unmatched = u
		}
	}
}

// WithUnmatchedEmitter registers an observer of unmatched events.
func WithUnmatchedEmitter(emitter UnmatchedEmitter) Option {
	return func(o *options) {
		o.unmatched = emitter
	}
}

// WithUnmatchedPolicy sets the policy for unmatched events. The default is IgnoreUnmatched.
func WithUnmatchedPolicy(p UnmatchedPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// Machine is the lifecycle state machine of one hosted service.
type Machine struct {
	name    string
	state   State
	channel Channel
	hooks   Hooks
	closed  bool

	logger    log.Logger
	emitter   EventEmitter
	unmatched UnmatchedEmitter
	policy    UnmatchedPolicy
}

// NewMachine creates a machine in the Initial state. The channel is not
// owned by the machine; Close only drops the reference. A nil hooks value
// behaves like NopHooks.
func NewMachine(name string, channel Channel, hooks Hooks, opts ...Option) (*Machine, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if channel == nil {
		return nil, ErrNilChannel
	}
	if hooks == nil {
		hooks = NopHooks{}
	}

	o := options{logger: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}

	return &Machine{
		name:      name,
		state:     Initial,
		channel:   channel,
		hooks:     hooks,
		logger:    o.logger,
		emitter:   o.emitter,
		unmatched: o.unmatched,
		policy:    o.policy,
	}, nil
}

// Name returns the service name.
func (m *Machine) Name() string { return m.name }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Closed reports whether Close was called.
func (m *Machine) Closed() bool { return m.closed }

func (m *Machine) String() string {
	return fmt.Sprintf("Service: %s, State: %s", m.name, m.state)
}

// Deliver handles one event. The steps of the matching transition run in
// order before Deliver returns. A failing hook publishes a ServiceFault,
// moves the machine to Failed and skips the remaining steps; Deliver still
// returns nil because the fault was handled. Panics raised by the Channel
// propagate to the caller.
func (m *Machine) Deliver(msg Message) error {
	if m.closed {
		return ErrClosed
	}
	if msg == nil {
		return ErrNilMessage
	}

	steps, ok := transitions[transitionKey{m.state, msg.Kind()}]
	if !ok {
		return m.unhandled(msg)
	}

	reason := msg.Kind().String()
	for _, s := range steps {
		if s.move {
			m.enter(s.to, reason)
			continue
		}
		if !s.guarded {
			_ = s.run(m, msg)
			continue
		}
		if err := m.guard(s, msg); err != nil {
			m.fault(s.name, err)
			return nil
		}
	}
	return nil
}

// Close releases the coordinator channel. It does not change state and does
// not release the service; calling it again is a no-op.
func (m *Machine) Close() error {
	if m.closed {
		return nil
	}
	m.channel = nil
	m.closed = true
	return nil
}

func (m *Machine) guard(s step, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Hook: s.name, Value: r}
		}
	}()
	return s.run(m, msg)
}

func (m *Machine) fault(hook string, err error) {
	m.logger.Error("lifecycle hook failed",
		log.String("service", m.name),
		log.String("hook", hook),
		log.Stringer("state", m.state),
		log.Err(err),
	)
	m.publish(ServiceFault{Name: m.name, Err: err})
	m.enter(Failed, "fault in "+hook)
}

func (m *Machine) enter(to State, reason string) {
	from := m.state
	m.state = to

	m.logger.Info("state transition",
		log.String("service", m.name),
		log.Stringer("from", from),
		log.Stringer("to", to),
		log.String("reason", reason),
	)

	if k, ok := entryActions[to]; ok {
		m.publish(NewMessage(k, m.name))
	}

	if m.emitter != nil {
		m.emitter.OnStateChange(from, to, reason)
	}
}

func (m *Machine) unhandled(msg Message) error {
	if m.unmatched != nil {
		m.unmatched.OnUnmatched(m.state, msg.Kind())
	}

	switch m.policy {
	case LogUnmatched:
		m.logger.Warn("unmatched event",
			log.String("service", m.name),
			log.Stringer("state", m.state),
			log.Stringer("event", msg.Kind()),
		)
	case RejectUnmatched:
		return fmt.Errorf("%w: %s in state %s", ErrUnhandledEvent, msg.Kind(), m.state)
	}
	return nil
}

func (m *Machine) publish(msg Message) {
	if m.channel == nil {
		return
	}
	m.channel.Send(msg)
}
