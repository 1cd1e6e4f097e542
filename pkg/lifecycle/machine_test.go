package lifecycle

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bft-labs/svchost/pkg/log"
)

// recordingChannel collects published messages.
type recordingChannel struct {
	sent []Message
}

func (c *recordingChannel) Send(msg Message) {
	c.sent = append(c.sent, msg)
}

func (c *recordingChannel) kinds() []Kind {
	out := make([]Kind, 0, len(c.sent))
	for _, m := range c.sent {
		out = append(out, m.Kind())
	}
	return out
}

func (c *recordingChannel) faults() []ServiceFault {
	var out []ServiceFault
	for _, m := range c.sent {
		if f, ok := m.(ServiceFault); ok {
			out = append(out, f)
		}
	}
	return out
}

// recordingHooks records hook calls and fails or panics on demand.
type recordingHooks struct {
	calls  []string
	fail   map[string]error
	panics map[string]any
}

func (h *recordingHooks) hit(name string) error {
	h.calls = append(h.calls, name)
	if v, ok := h.panics[name]; ok {
		panic(v)
	}
	return h.fail[name]
}

func (h *recordingHooks) Create(CreateService) error   { return h.hit("create") }
func (h *recordingHooks) Created(ServiceCreated) error { return h.hit("created") }
func (h *recordingHooks) Start() error                 { return h.hit("start") }
func (h *recordingHooks) Pause() error                 { return h.hit("pause") }
func (h *recordingHooks) Continue() error              { return h.hit("continue") }
func (h *recordingHooks) Stop() error                  { return h.hit("stop") }
func (h *recordingHooks) Unload() error                { return h.hit("unload") }
func (h *recordingHooks) Faulted(ServiceFault)         { _ = h.hit("faulted") }

// recordingEmitter records state changes and unmatched events.
type recordingEmitter struct {
	changes   [][2]State
	unmatched []Kind
}

func (e *recordingEmitter) OnStateChange(previous, current State, reason string) {
	e.changes = append(e.changes, [2]State{previous, current})
}

func (e *recordingEmitter) OnUnmatched(state State, event Kind) {
	e.unmatched = append(e.unmatched, event)
}

// mockLogger counts warnings.
type mockLogger struct {
	log.NoopLogger
	warns int
}

func (l *mockLogger) Warn(msg string, fields ...log.Field) { l.warns++ }

const svc = "billing"

func newTestMachine(t *testing.T, hooks Hooks, opts ...Option) (*Machine, *recordingChannel) {
	t.Helper()
	ch := &recordingChannel{}
	m, err := NewMachine(svc, ch, hooks, opts...)
	if err != nil {
		t.Fatalf("NewMachine() error = %v", err)
	}
	return m, ch
}

func deliverAll(t *testing.T, m *Machine, msgs ...Message) {
	t.Helper()
	for _, msg := range msgs {
		if err := m.Deliver(msg); err != nil {
			t.Fatalf("Deliver(%s) error = %v", msg.Kind(), err)
		}
	}
}

func event(k Kind) Message {
	if k == KindServiceFault {
		return ServiceFault{Name: svc, Err: errors.New("external fault")}
	}
	return NewMessage(k, svc)
}

func TestNewMachine(t *testing.T) {
	m, _ := newTestMachine(t, nil)

	if m.State() != Initial {
		t.Errorf("initial state = %v, want Initial", m.State())
	}
	if m.Name() != svc {
		t.Errorf("Name() = %q, want %q", m.Name(), svc)
	}
	if got := m.String(); got != "Service: billing, State: Initial" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewMachine_Validation(t *testing.T) {
	if _, err := NewMachine("", &recordingChannel{}, nil); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name error = %v, want ErrEmptyName", err)
	}
	if _, err := NewMachine(svc, nil, nil); !errors.Is(err, ErrNilChannel) {
		t.Errorf("nil channel error = %v, want ErrNilChannel", err)
	}
}

func TestMachine_HappyPath(t *testing.T) {
	hooks := &recordingHooks{}
	m, ch := newTestMachine(t, hooks)

	steps := []struct {
		msg  Message
		want State
	}{
		{CreateService{Name: svc}, Creating},
		{ServiceCreated{Name: svc}, Starting},
		{ServiceRunning{Name: svc}, Running},
		{StopService{Name: svc}, Stopping},
		{ServiceStopped{Name: svc}, Stopped},
		{UnloadService{Name: svc}, Unloading},
		{ServiceUnloaded{Name: svc}, Completed},
	}
	for _, s := range steps {
		deliverAll(t, m, s.msg)
		if m.State() != s.want {
			t.Fatalf("after %s state = %v, want %v", s.msg.Kind(), m.State(), s.want)
		}
	}

	wantCalls := []string{"create", "created", "start", "stop", "unload"}
	if !reflect.DeepEqual(hooks.calls, wantCalls) {
		t.Errorf("hook calls = %v, want %v", hooks.calls, wantCalls)
	}

	wantKinds := []Kind{KindServiceStarting, KindServiceStopping, KindServiceCompleted}
	if !reflect.DeepEqual(ch.kinds(), wantKinds) {
		t.Errorf("published = %v, want %v", ch.kinds(), wantKinds)
	}
	for _, msg := range ch.sent {
		if msg.ServiceName() != svc {
			t.Errorf("%s addressed to %q, want %q", msg.Kind(), msg.ServiceName(), svc)
		}
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if m.State() != Completed {
		t.Errorf("state after Close = %v, want Completed", m.State())
	}
}

func TestMachine_CreatedPath(t *testing.T) {
	tests := []struct {
		name  string
		event Message
		want  State
		calls []string
	}{
		{"start service", StartService{Name: svc}, Starting, []string{"start"}},
		{"running directly", ServiceRunning{Name: svc}, Running, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hooks := &recordingHooks{}
			m, _ := newTestMachine(t, hooks)
			m.state = Created

			deliverAll(t, m, tt.event)

			if m.State() != tt.want {
				t.Errorf("state = %v, want %v", m.State(), tt.want)
			}
			if !reflect.DeepEqual(hooks.calls, tt.calls) {
				t.Errorf("calls = %v, want %v", hooks.calls, tt.calls)
			}
		})
	}
}

func TestMachine_PauseContinue(t *testing.T) {
	hooks := &recordingHooks{}
	m, ch := newTestMachine(t, hooks)
	m.state = Running

	deliverAll(t, m,
		PauseService{Name: svc},
		ServicePaused{Name: svc},
		ContinueService{Name: svc},
		ServiceContinued{Name: svc},
	)

	if m.State() != Running {
		t.Errorf("state = %v, want Running", m.State())
	}
	if want := []string{"pause", "continue"}; !reflect.DeepEqual(hooks.calls, want) {
		t.Errorf("calls = %v, want %v", hooks.calls, want)
	}
	if want := []Kind{KindServicePausing, KindServiceContinuing}; !reflect.DeepEqual(ch.kinds(), want) {
		t.Errorf("published = %v, want %v", ch.kinds(), want)
	}
}

func TestMachine_Restart(t *testing.T) {
	hooks := &recordingHooks{}
	emitter := &recordingEmitter{}
	m, ch := newTestMachine(t, hooks, WithEventEmitter(emitter))
	m.state = Running

	deliverAll(t, m, RestartService{Name: svc})
	if m.State() != StoppingToRestart {
		t.Fatalf("state = %v, want StoppingToRestart", m.State())
	}
	if want := []string{"stop"}; !reflect.DeepEqual(hooks.calls, want) {
		t.Fatalf("calls = %v, want %v", hooks.calls, want)
	}

	deliverAll(t, m, ServiceStopped{Name: svc})
	if m.State() != CreatingToRestart {
		t.Fatalf("state = %v, want CreatingToRestart", m.State())
	}
	if want := []string{"stop", "unload", "create"}; !reflect.DeepEqual(hooks.calls, want) {
		t.Fatalf("calls = %v, want %v", hooks.calls, want)
	}

	deliverAll(t, m, ServiceCreated{Name: svc})
	if m.State() != Restarting {
		t.Fatalf("state = %v, want Restarting", m.State())
	}

	deliverAll(t, m, ServiceRunning{Name: svc})
	if m.State() != Running {
		t.Fatalf("state = %v, want Running", m.State())
	}

	wantCalls := []string{"stop", "unload", "create", "created", "start"}
	if !reflect.DeepEqual(hooks.calls, wantCalls) {
		t.Errorf("calls = %v, want %v", hooks.calls, wantCalls)
	}
	wantKinds := []Kind{KindServiceRestarting, KindServiceRestarted}
	if !reflect.DeepEqual(ch.kinds(), wantKinds) {
		t.Errorf("published = %v, want %v", ch.kinds(), wantKinds)
	}
	wantChanges := [][2]State{
		{Running, StoppingToRestart},
		{StoppingToRestart, CreatingToRestart},
		{CreatingToRestart, Restarting},
		{Restarting, Running},
	}
	if !reflect.DeepEqual(emitter.changes, wantChanges) {
		t.Errorf("changes = %v, want %v", emitter.changes, wantChanges)
	}
}

func TestMachine_FaultDuringRestart(t *testing.T) {
	boom := errors.New("rebuild failed")
	tests := []struct {
		name string
		hook string
	}{
		{"unload fails", "unload"},
		{"create fails", "create"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hooks := &recordingHooks{fail: map[string]error{tt.hook: boom}}
			m, ch := newTestMachine(t, hooks)
			m.state = Running

			deliverAll(t, m, RestartService{Name: svc}, ServiceStopped{Name: svc})

			if m.State() != Failed {
				t.Fatalf("state = %v, want Failed", m.State())
			}
			faults := ch.faults()
			if len(faults) != 1 {
				t.Fatalf("got %d faults, want 1", len(faults))
			}
			if faults[0].Err != boom {
				t.Errorf("fault error = %v, want %v", faults[0].Err, boom)
			}

			// The cycle is aborted: later acknowledgements are ignored.
			deliverAll(t, m, ServiceCreated{Name: svc}, ServiceRunning{Name: svc})
			if m.State() != Failed {
				t.Errorf("state = %v after late events, want Failed", m.State())
			}
			for _, k := range ch.kinds() {
				if k == KindServiceRestarting || k == KindServiceRestarted {
					t.Errorf("unexpected %s after fault", k)
				}
			}
		})
	}
}

func TestMachine_HookFaults(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		hook  string
		from  State
		event Message
	}{
		{"create", "create", Initial, CreateService{Name: svc}},
		{"created", "created", Creating, ServiceCreated{Name: svc}},
		{"start after created", "start", Creating, ServiceCreated{Name: svc}},
		{"start", "start", Created, StartService{Name: svc}},
		{"pause", "pause", Running, PauseService{Name: svc}},
		{"continue", "continue", Paused, ContinueService{Name: svc}},
		{"stop", "stop", Running, StopService{Name: svc}},
		{"stop on restart", "stop", Running, RestartService{Name: svc}},
		{"unload", "unload", Stopped, UnloadService{Name: svc}},
		{"start on restart", "start", CreatingToRestart, ServiceCreated{Name: svc}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hooks := &recordingHooks{fail: map[string]error{tt.hook: boom}}
			m, ch := newTestMachine(t, hooks)
			m.state = tt.from

			if err := m.Deliver(tt.event); err != nil {
				t.Fatalf("Deliver() error = %v", err)
			}

			if m.State() != Failed {
				t.Errorf("state = %v, want Failed", m.State())
			}
			faults := ch.faults()
			if len(faults) != 1 {
				t.Fatalf("got %d faults, want 1", len(faults))
			}
			if faults[0].Err != boom || faults[0].Name != svc {
				t.Errorf("fault = %+v, want error %v for %s", faults[0], boom, svc)
			}
			if last := hooks.calls[len(hooks.calls)-1]; last != tt.hook {
				t.Errorf("hooks ran after the failing one: %v", hooks.calls)
			}
		})
	}
}

func TestMachine_FaultSkipsEntryNotification(t *testing.T) {
	hooks := &recordingHooks{fail: map[string]error{"start": errors.New("boom")}}
	m, ch := newTestMachine(t, hooks)
	m.state = Creating

	deliverAll(t, m, ServiceCreated{Name: svc})

	if want := []Kind{KindServiceFault}; !reflect.DeepEqual(ch.kinds(), want) {
		t.Errorf("published = %v, want %v", ch.kinds(), want)
	}
}

func TestMachine_HookPanic(t *testing.T) {
	cause := errors.New("nil service")
	hooks := &recordingHooks{panics: map[string]any{"start": cause}}
	m, ch := newTestMachine(t, hooks)
	m.state = Created

	deliverAll(t, m, StartService{Name: svc})

	if m.State() != Failed {
		t.Fatalf("state = %v, want Failed", m.State())
	}
	faults := ch.faults()
	if len(faults) != 1 {
		t.Fatalf("got %d faults, want 1", len(faults))
	}
	var pe *PanicError
	if !errors.As(faults[0].Err, &pe) {
		t.Fatalf("fault error %T is not *PanicError", faults[0].Err)
	}
	if pe.Hook != "start" {
		t.Errorf("PanicError.Hook = %q, want start", pe.Hook)
	}
	if !errors.Is(faults[0].Err, cause) {
		t.Errorf("fault does not wrap the panic value")
	}
}

func TestMachine_ExternalFaultWhileCreating(t *testing.T) {
	hooks := &recordingHooks{}
	m, ch := newTestMachine(t, hooks)
	m.state = Creating

	deliverAll(t, m, ServiceFault{Name: svc, Err: errors.New("build failed")})

	if m.State() != Failed {
		t.Errorf("state = %v, want Failed", m.State())
	}
	if want := []string{"faulted"}; !reflect.DeepEqual(hooks.calls, want) {
		t.Errorf("calls = %v, want %v", hooks.calls, want)
	}
	if len(ch.sent) != 0 {
		t.Errorf("published %v, want nothing", ch.kinds())
	}
}

func TestMachine_UnmatchedEventsAreIgnored(t *testing.T) {
	for _, state := range States() {
		for _, kind := range Events() {
			if Handles(state, kind) {
				continue
			}
			hooks := &recordingHooks{}
			emitter := &recordingEmitter{}
			m, ch := newTestMachine(t, hooks, WithEventEmitter(emitter))
			m.state = state

			if err := m.Deliver(event(kind)); err != nil {
				t.Errorf("%s/%s: Deliver() error = %v", state, kind, err)
			}
			if m.State() != state {
				t.Errorf("%s/%s: state changed to %v", state, kind, m.State())
			}
			if len(hooks.calls) != 0 {
				t.Errorf("%s/%s: hooks called: %v", state, kind, hooks.calls)
			}
			if len(ch.sent) != 0 {
				t.Errorf("%s/%s: published %v", state, kind, ch.kinds())
			}
			if len(emitter.changes) != 0 {
				t.Errorf("%s/%s: state change emitted", state, kind)
			}
			if len(emitter.unmatched) != 1 || emitter.unmatched[0] != kind {
				t.Errorf("%s/%s: unmatched = %v", state, kind, emitter.unmatched)
			}
		}
	}
}

func TestMachine_TerminalStatesAbsorb(t *testing.T) {
	for _, state := range []State{Completed, Failed} {
		for _, kind := range Events() {
			if Handles(state, kind) {
				t.Errorf("%s handles %s", state, kind)
			}
		}
		if !state.Terminal() {
			t.Errorf("%s.Terminal() = false", state)
		}
	}
}

func TestMachine_UnmatchedPolicies(t *testing.T) {
	t.Run("log", func(t *testing.T) {
		logger := &mockLogger{}
		m, _ := newTestMachine(t, nil, WithLogger(logger), WithUnmatchedPolicy(LogUnmatched))

		if err := m.Deliver(StopService{Name: svc}); err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}
		if logger.warns != 1 {
			t.Errorf("warnings = %d, want 1", logger.warns)
		}
	})

	t.Run("reject", func(t *testing.T) {
		m, ch := newTestMachine(t, nil, WithUnmatchedPolicy(RejectUnmatched))

		err := m.Deliver(StopService{Name: svc})
		if !errors.Is(err, ErrUnhandledEvent) {
			t.Fatalf("Deliver() error = %v, want ErrUnhandledEvent", err)
		}
		if m.State() != Initial || len(ch.sent) != 0 {
			t.Errorf("rejected event changed the machine: %v, %v", m.State(), ch.kinds())
		}
	})
}

func TestParseUnmatchedPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    UnmatchedPolicy
		wantErr bool
	}{
		{"", IgnoreUnmatched, false},
		{"ignore", IgnoreUnmatched, false},
		{"log", LogUnmatched, false},
		{"reject", RejectUnmatched, false},
		{"count", IgnoreUnmatched, true},
	}
	for _, tt := range tests {
		got, err := ParseUnmatchedPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseUnmatchedPolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestMachine_EntryNotificationsOnEveryPath(t *testing.T) {
	for key := range transitions {
		dest, _ := Destination(key.state, key.event)
		want, ok := EntryNotification(dest)
		if !ok {
			continue
		}

		m, ch := newTestMachine(t, nil)
		m.state = key.state
		deliverAll(t, m, event(key.event))

		found := false
		for _, k := range ch.kinds() {
			if k == want {
				found = true
			}
		}
		if !found {
			t.Errorf("%s --%s--> %s: %s not published (got %v)", key.state, key.event, dest, want, ch.kinds())
		}
	}
}

func TestMachine_EmitterSeesIntermediateCreated(t *testing.T) {
	emitter := &recordingEmitter{}
	m, _ := newTestMachine(t, nil, WithEventEmitter(emitter))

	deliverAll(t, m, CreateService{Name: svc}, ServiceCreated{Name: svc})

	want := [][2]State{
		{Initial, Creating},
		{Creating, Created},
		{Created, Starting},
	}
	if !reflect.DeepEqual(emitter.changes, want) {
		t.Errorf("changes = %v, want %v", emitter.changes, want)
	}
}

func TestMachine_Close(t *testing.T) {
	for _, state := range []State{Completed, Failed, Running} {
		t.Run(state.String(), func(t *testing.T) {
			hooks := &recordingHooks{}
			m, ch := newTestMachine(t, hooks)
			m.state = state

			for i := 0; i < 2; i++ {
				if err := m.Close(); err != nil {
					t.Fatalf("Close() #%d error = %v", i+1, err)
				}
			}
			if !m.Closed() {
				t.Error("Closed() = false")
			}
			if m.State() != state {
				t.Errorf("state = %v after Close, want %v", m.State(), state)
			}

			if err := m.Deliver(StopService{Name: svc}); !errors.Is(err, ErrClosed) {
				t.Errorf("Deliver() after Close error = %v, want ErrClosed", err)
			}
			if len(ch.sent) != 0 || len(hooks.calls) != 0 {
				t.Errorf("closed machine acted: published %v, calls %v", ch.kinds(), hooks.calls)
			}
		})
	}
}

func TestMachine_DeliverNil(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	if err := m.Deliver(nil); !errors.Is(err, ErrNilMessage) {
		t.Errorf("Deliver(nil) error = %v, want ErrNilMessage", err)
	}
}

func TestMachine_ChannelPanicPropagates(t *testing.T) {
	ch := ChannelFunc(func(Message) { panic("transport down") })
	m, err := NewMachine(svc, ch, nil)
	if err != nil {
		t.Fatal(err)
	}
	m.state = Created

	defer func() {
		if recover() == nil {
			t.Error("channel panic was swallowed")
		}
	}()
	_ = m.Deliver(StartService{Name: svc})
}

func TestMachines_AreIndependent(t *testing.T) {
	a, _ := newTestMachine(t, nil)
	b, _ := newTestMachine(t, nil)

	deliverAll(t, a, CreateService{Name: svc})

	if b.State() != Initial {
		t.Errorf("second machine state = %v, want Initial", b.State())
	}
}
