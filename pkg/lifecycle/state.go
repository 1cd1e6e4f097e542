package lifecycle

// State is the lifecycle state of a hosted service.
type State int

const (
	Initial State = iota
	Creating
	Created
	Starting
	Running
	Pausing
	Paused
	Continuing
	Stopping
	Stopped
	StoppingToRestart
	CreatingToRestart
	Restarting
	Unloading
	Completed
	Failed
)

var stateNames = [...]string{
	Initial:           "Initial",
	Creating:          "Creating",
	Created:           "Created",
	Starting:          "Starting",
	Running:           "Running",
	Pausing:           "Pausing",
	Paused:            "Paused",
	Continuing:        "Continuing",
	Stopping:          "Stopping",
	Stopped:           "Stopped",
	StoppingToRestart: "StoppingToRestart",
	CreatingToRestart: "CreatingToRestart",
	Restarting:        "Restarting",
	Unloading:         "Unloading",
	Completed:         "Completed",
	Failed:            "Failed",
}

// String returns a human-readable representation of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transitions leave s.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// States returns every state in declaration order.
func States() []State {
	out := make([]State, len(stateNames))
	for i := range stateNames {
		out[i] = State(i)
	}
	return out
}

// EventEmitter is called after every state change.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// UnmatchedEmitter is called when an event has no handler in the current state.
type UnmatchedEmitter interface {
	OnUnmatched(state State, event Kind)
}
