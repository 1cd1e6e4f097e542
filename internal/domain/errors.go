package domain

import "errors"

// Host errors, checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Run is called on a controller that already ran.
	ErrAlreadyRunning = errors.New("svchost: already running")

	// ErrNotRunning is returned when stopping a host that was never started.
	ErrNotRunning = errors.New("svchost: not running")

	// ErrServiceFaulted is returned by Run when the service ended in the Failed state.
	ErrServiceFaulted = errors.New("svchost: service faulted")

	// ErrServiceExited is returned by Run when the service completed after
	// exiting on its own with an error.
	ErrServiceExited = errors.New("svchost: service exited")

	// ErrShutdownTimeout is returned when the service did not finish stopping in time.
	ErrShutdownTimeout = errors.New("svchost: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("svchost: invalid configuration")

	// ErrNoHandle is returned by a hook that needs a service handle before one was built.
	ErrNoHandle = errors.New("svchost: no service handle")
)
