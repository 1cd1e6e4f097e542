package lifecycle

// step is one entry of a transition: a hook call, a publish, or a move to
// another state. Steps of a transition run in order.
type step struct {
	name    string
	run     func(m *Machine, msg Message) error
	guarded bool
	to      State
	move    bool
}

// call runs a hook under the fault policy.
func call(name string, run func(m *Machine, msg Message) error) step {
	return step{name: name, run: run, guarded: true}
}

// publish sends a parameterless notification. Channel failures are not
// converted to faults.
func publish(k Kind) step {
	return step{name: "publish " + k.String(), run: func(m *Machine, _ Message) error {
		m.publish(NewMessage(k, m.name))
		return nil
	}}
}

func transitionTo(s State) step {
	return step{to: s, move: true}
}

type transitionKey struct {
	state State
	event Kind
}

var (
	hookCreate = call("create", func(m *Machine, msg Message) error {
		cs, ok := msg.(CreateService)
		if !ok {
			cs = CreateService{Name: m.name}
		}
		return m.hooks.Create(cs)
	})
	hookCreated = call("created", func(m *Machine, msg Message) error {
		sc, ok := msg.(ServiceCreated)
		if !ok {
			sc = ServiceCreated{Name: msg.ServiceName()}
		}
		return m.hooks.Created(sc)
	})
	hookFaulted = call("faulted", func(m *Machine, msg Message) error {
		sf, ok := msg.(ServiceFault)
		if !ok {
			sf = ServiceFault{Name: msg.ServiceName()}
		}
		m.hooks.Faulted(sf)
		return nil
	})
	hookStart    = call("start", func(m *Machine, _ Message) error { return m.hooks.Start() })
	hookPause    = call("pause", func(m *Machine, _ Message) error { return m.hooks.Pause() })
	hookContinue = call("continue", func(m *Machine, _ Message) error { return m.hooks.Continue() })
	hookStop     = call("stop", func(m *Machine, _ Message) error { return m.hooks.Stop() })
	hookUnload   = call("unload", func(m *Machine, _ Message) error { return m.hooks.Unload() })
)

// transitions is shared read-only by every Machine.
var transitions = map[transitionKey][]step{
	{Initial, KindCreateService}: {hookCreate, transitionTo(Creating)},

	{Creating, KindServiceCreated}: {hookCreated, transitionTo(Created), hookStart, transitionTo(Starting)},
	{Creating, KindServiceFault}:   {hookFaulted, transitionTo(Failed)},

	{Created, KindStartService}:   {hookStart, transitionTo(Starting)},
	{Created, KindServiceRunning}: {transitionTo(Running)},

	{Starting, KindServiceRunning}: {transitionTo(Running)},

	{Running, KindPauseService}:        {hookPause, transitionTo(Pausing)},
	{Pausing, KindServicePaused}:       {transitionTo(Paused)},
	{Paused, KindContinueService}:      {hookContinue, transitionTo(Continuing)},
	{Continuing, KindServiceContinued}: {transitionTo(Running)},

	{Running, KindStopService}:    {hookStop, transitionTo(Stopping)},
	{Running, KindRestartService}: {hookStop, transitionTo(StoppingToRestart)},

	{Stopping, KindServiceStopped}:   {transitionTo(Stopped)},
	{Stopped, KindUnloadService}:     {hookUnload, transitionTo(Unloading)},
	{Unloading, KindServiceUnloaded}: {transitionTo(Completed)},

	{StoppingToRestart, KindServiceStopped}: {hookUnload, hookCreate, transitionTo(CreatingToRestart)},
	{CreatingToRestart, KindServiceCreated}: {hookCreated, hookStart, transitionTo(Restarting)},
	{Restarting, KindServiceRunning}:        {publish(KindServiceRestarted), transitionTo(Running)},
}

// entryActions maps a state to the notification published on every entry.
var entryActions = map[State]Kind{
	Starting:   KindServiceStarting,
	Pausing:    KindServicePausing,
	Continuing: KindServiceContinuing,
	Stopping:   KindServiceStopping,
	Restarting: KindServiceRestarting,
	Completed:  KindServiceCompleted,
}

// Handles reports whether event has a handler in state.
func Handles(state State, event Kind) bool {
	_, ok := transitions[transitionKey{state, event}]
	return ok
}

// Destination returns the state reached when event is handled in state and
// no hook fails.
func Destination(state State, event Kind) (State, bool) {
	steps, ok := transitions[transitionKey{state, event}]
	if !ok {
		return state, false
	}
	to := state
	for _, s := range steps {
		if s.move {
			to = s.to
		}
	}
	return to, true
}

// EntryNotification returns the notification published on entering state.
func EntryNotification(state State) (Kind, bool) {
	k, ok := entryActions[state]
	return k, ok
}
