package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/svchost/internal/domain"
	"github.com/bft-labs/svchost/pkg/lifecycle"
	"github.com/bft-labs/svchost/pkg/log"
	"github.com/bft-labs/svchost/pkg/service"
)

// ShutdownTimeout is the default maximum time to wait for the service to
// stop and unload after the run context is canceled.
const ShutdownTimeout = 30 * time.Second

// Config configures a Controller.
type Config struct {
	Settings        service.HostSettings
	UnmatchedPolicy lifecycle.UnmatchedPolicy
	ShutdownTimeout time.Duration
}

// Option configures optional behavior of a Controller.
type Option func(*options)

type options struct {
	logger   log.Logger
	emitters []lifecycle.EventEmitter
}

// WithLogger sets the logger used by the controller and its machine.
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

// Controller hosts one service: it owns the service handle, implements the
// lifecycle hooks on top of a service.Builder and delivers events to the
// machine one at a time from Run.
type Controller struct {
	name            string
	settings        service.HostSettings
	builder         service.Builder
	logger          log.Logger
	emitters        []lifecycle.EventEmitter
	shutdownTimeout time.Duration

	machine *lifecycle.Machine
	mailbox *mailbox
	running atomic.Bool

	// Owned by the Run goroutine.
	handle        service.Handle
	stopRequested bool
	exitErr       error

	mu       sync.RWMutex
	state    lifecycle.State
	fault    error
	done     chan struct{}
	doneOnce sync.Once
}

// NewController creates a controller for the service described by cfg.
// Notifications are published to channel.
func NewController(cfg Config, builder service.Builder, channel lifecycle.Channel, opts ...Option) (*Controller, error) {
	if cfg.Settings.Name == "" {
		return nil, fmt.Errorf("%w: service name is required", domain.ErrInvalidConfig)
	}
	if builder == nil {
		return nil, fmt.Errorf("%w: service builder is required", domain.ErrInvalidConfig)
	}
	if channel == nil {
		return nil, fmt.Errorf("%w: coordinator channel is required", domain.ErrInvalidConfig)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = ShutdownTimeout
	}

	o := options{logger: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Controller{
		name:            cfg.Settings.Name,
		settings:        cfg.Settings,
		builder:         builder,
		logger:          o.logger,
		emitters:        o.emitters,
		shutdownTimeout: cfg.ShutdownTimeout,
		mailbox:         newMailbox(),
		state:           lifecycle.Initial,
		done:            make(chan struct{}),
	}

	machine, err := lifecycle.NewMachine(c.name, faultRecorder{next: channel, c: c}, hooks{c},
		lifecycle.WithLogger(o.logger),
		lifecycle.WithEventEmitter(observer{c}),
		lifecycle.WithUnmatchedPolicy(cfg.UnmatchedPolicy),
	)
	if err != nil {
		return nil, err
	}
	c.machine = machine

	return c, nil
}

// Name returns the service name.
func (c *Controller) Name() string { return c.name }

// State returns the current lifecycle state. Safe for concurrent use.
func (c *Controller) State() lifecycle.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Done is closed when the service reaches Completed or Failed.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Fault returns the error that moved the service to Failed, if any.
func (c *Controller) Fault() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fault
}

// Notify queues an event for the machine. Services whose operations report
// "not complete" use it to signal completion later, for example
// lifecycle.ServiceRunning.
func (c *Controller) Notify(msg lifecycle.Message) {
	c.mailbox.post(msg)
}

// Stop requests an orderly stop followed by unload. If the service is not
// running yet the stop is applied once it is.
func (c *Controller) Stop() {
	c.mailbox.post(stopRequest{name: c.name})
}

// Restart requests a stop, rebuild and start of a running service.
func (c *Controller) Restart() {
	c.mailbox.post(lifecycle.RestartService{Name: c.name})
}

// Pause requests a pause of a running service.
func (c *Controller) Pause() {
	c.mailbox.post(lifecycle.PauseService{Name: c.name})
}

// Continue requests that a paused service continue.
func (c *Controller) Continue() {
	c.mailbox.post(lifecycle.ContinueService{Name: c.name})
}

// Run creates and starts the service and delivers events until it reaches
// a terminal state. Canceling ctx requests a stop; if the service has not
// completed within the shutdown timeout its handle is closed and Run
// returns ErrShutdownTimeout. Run returns nil after Completed, an error
// wrapping ErrServiceExited when the service exited on its own with an
// error, and an error wrapping ErrServiceFaulted after Failed. Run may be
// called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return domain.ErrAlreadyRunning
	}
	defer c.machine.Close()

	c.mailbox.post(lifecycle.CreateService{Name: c.name})

	ctxDone := ctx.Done()
	var deadline <-chan time.Time

	for {
		c.drain()
		if st := c.machine.State(); st.Terminal() {
			return c.result(st)
		}

		select {
		case <-c.mailbox.notify:
		case <-ctxDone:
			ctxDone = nil
			c.logger.Info("shutdown requested",
				log.String("service", c.name),
				log.Stringer("state", c.machine.State()),
				log.Duration("timeout", c.shutdownTimeout),
			)
			timer := time.NewTimer(c.shutdownTimeout)
			defer timer.Stop()
			deadline = timer.C
			c.mailbox.post(stopRequest{name: c.name})
		case <-deadline:
			c.logger.Warn("shutdown timeout, abandoning service",
				log.String("service", c.name),
				log.Stringer("state", c.machine.State()),
			)
			c.releaseHandle()
			return domain.ErrShutdownTimeout
		}
	}
}

func (c *Controller) drain() {
	for {
		if c.machine.State().Terminal() {
			return
		}
		msg, ok := c.mailbox.take()
		if !ok {
			return
		}
		if _, ok := msg.(stopRequest); ok {
			c.handleStopRequest()
			continue
		}
		if err := c.machine.Deliver(msg); err != nil {
			c.logger.Warn("event rejected",
				log.String("service", c.name),
				log.Stringer("event", msg.Kind()),
				log.Err(err),
			)
		}
	}
}

func (c *Controller) handleStopRequest() {
	c.stopRequested = true

	switch st := c.machine.State(); st {
	case lifecycle.Running:
		c.deliver(lifecycle.StopService{Name: c.name})
	case lifecycle.Paused:
		c.deliver(lifecycle.ContinueService{Name: c.name})
	default:
		// Applied on the next stable state by observe.
		c.logger.Debug("stop deferred", log.String("service", c.name), log.Stringer("state", st))
	}
}

func (c *Controller) deliver(msg lifecycle.Message) {
	if err := c.machine.Deliver(msg); err != nil {
		c.logger.Warn("event rejected",
			log.String("service", c.name),
			log.Stringer("event", msg.Kind()),
			log.Err(err),
		)
	}
}

// observe runs on the Run goroutine after every state change.
func (c *Controller) observe(previous, current lifecycle.State, reason string) {
	c.mu.Lock()
	c.state = current
	c.mu.Unlock()

	for _, e := range c.emitters {
		e.OnStateChange(previous, current, reason)
	}

	switch current {
	case lifecycle.Running:
		if c.stopRequested {
			c.mailbox.post(lifecycle.StopService{Name: c.name})
		}
	case lifecycle.Paused:
		if c.stopRequested {
			c.mailbox.post(lifecycle.ContinueService{Name: c.name})
		}
	case lifecycle.Stopped:
		c.mailbox.post(lifecycle.UnloadService{Name: c.name})
	case lifecycle.Failed:
		c.releaseHandle()
	}

	if current.Terminal() {
		c.doneOnce.Do(func() { close(c.done) })
	}
}

func (c *Controller) unmatched(state lifecycle.State, event lifecycle.Kind) {
	for _, e := range c.emitters {
		if u, ok := e.(lifecycle.UnmatchedEmitter); ok {
			u.OnUnmatched(state, event)
		}
	}
}

func (c *Controller) releaseHandle() {
	h := c.handle
	if h == nil {
		return
	}
	c.handle = nil
	if err := h.Close(); err != nil {
		c.logger.Error("closing service failed", log.String("service", c.name), log.Err(err))
	}
}

func (c *Controller) result(st lifecycle.State) error {
	if st == lifecycle.Completed {
		if c.exitErr != nil {
			return fmt.Errorf("%w: %w", domain.ErrServiceExited, c.exitErr)
		}
		return nil
	}
	if err := c.Fault(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrServiceFaulted, err)
	}
	return domain.ErrServiceFaulted
}

// complete posts follow when an operation reports it already finished.
func (c *Controller) complete(done bool, follow lifecycle.Message) {
	if done {
		c.mailbox.post(follow)
	}
}

// hooks implements lifecycle.Hooks on top of the service builder and handle.
type hooks struct{ c *Controller }

func (h hooks) Create(lifecycle.CreateService) error {
	c := h.c
	handle, err := c.builder.Build(c.settings)
	if err != nil {
		return err
	}
	c.handle = handle
	c.mailbox.post(lifecycle.ServiceCreated{Name: c.name})
	return nil
}

func (h hooks) Created(lifecycle.ServiceCreated) error {
	h.c.logger.Debug("service created", log.String("service", h.c.name))
	return nil
}

func (h hooks) Start() error {
	return h.operate("start", service.Handle.Start, lifecycle.ServiceRunning{Name: h.c.name})
}

func (h hooks) Pause() error {
	return h.operate("pause", service.Handle.Pause, lifecycle.ServicePaused{Name: h.c.name})
}

func (h hooks) Continue() error {
	return h.operate("continue", service.Handle.Continue, lifecycle.ServiceContinued{Name: h.c.name})
}

func (h hooks) Stop() error {
	return h.operate("stop", service.Handle.Stop, lifecycle.ServiceStopped{Name: h.c.name})
}

func (h hooks) Unload() error {
	c := h.c
	handle := c.handle
	if handle == nil {
		return domain.ErrNoHandle
	}
	c.handle = nil
	if c.machine.State() == lifecycle.Stopped {
		if r, ok := handle.(service.ExitReporter); ok {
			if err := r.ExitErr(); err != nil {
				c.exitErr = err
			}
		}
	}
	if err := handle.Close(); err != nil {
		return err
	}
	// A restart rebuilds right away and expects no acknowledgment.
	if c.machine.State() == lifecycle.Stopped {
		c.mailbox.post(lifecycle.ServiceUnloaded{Name: c.name})
	}
	return nil
}

func (h hooks) Faulted(msg lifecycle.ServiceFault) {
	h.c.mu.Lock()
	if h.c.fault == nil {
		h.c.fault = msg.Err
	}
	h.c.mu.Unlock()

	h.c.logger.Error("service fault reported",
		log.String("service", h.c.name),
		log.Err(msg.Err),
	)
}

func (h hooks) operate(op string, fn func(service.Handle, service.HostControl) (bool, error), follow lifecycle.Message) error {
	c := h.c
	if c.handle == nil {
		return domain.ErrNoHandle
	}
	done, err := fn(c.handle, c)
	if err != nil {
		return err
	}
	c.logger.Debug("service operation returned",
		log.String("service", c.name),
		log.String("operation", op),
		log.Bool("complete", done),
	)
	c.complete(done, follow)
	return nil
}

// observer forwards machine callbacks to the controller.
type observer struct{ c *Controller }

func (o observer) OnStateChange(previous, current lifecycle.State, reason string) {
	o.c.observe(previous, current, reason)
}

func (o observer) OnUnmatched(state lifecycle.State, event lifecycle.Kind) {
	o.c.unmatched(state, event)
}

// faultRecorder remembers the first published fault before forwarding.
type faultRecorder struct {
	next lifecycle.Channel
	c    *Controller
}

func (f faultRecorder) Send(msg lifecycle.Message) {
	if sf, ok := msg.(lifecycle.ServiceFault); ok {
		f.c.mu.Lock()
		if f.c.fault == nil {
			f.c.fault = sf.Err
		}
		f.c.mu.Unlock()
	}
	f.next.Send(msg)
}

var _ service.HostControl = (*Controller)(nil)
