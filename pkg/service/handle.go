package service

// Handle wraps one hosted service instance.
//
// The bool result of each operation reports whether the operation is
// complete. Close must be safe to call more than once; only the first call
// releases the service.
type Handle interface {
	Start(hc HostControl) (bool, error)
	Pause(hc HostControl) (bool, error)
	Continue(hc HostControl) (bool, error)
	Stop(hc HostControl) (bool, error)
	Close() error
}

// ExitReporter is implemented by services that can end on their own.
// ExitErr returns the cause of an exit the host did not request, or nil.
type ExitReporter interface {
	ExitErr() error
}

// Builder constructs a Handle from host settings. Build does not retry.
type Builder interface {
	Build(settings HostSettings) (Handle, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(settings HostSettings) (Handle, error)

// Build calls f(settings).
func (f BuilderFunc) Build(settings HostSettings) (Handle, error) {
	return f(settings)
}
