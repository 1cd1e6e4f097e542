package lifecycle

// Hooks are the operations a Machine calls while handling events.
//
// Every method except Faulted may fail. A returned error, or a panic,
// becomes a ServiceFault and moves the machine to Failed. Hooks run on
// the goroutine that called Deliver and may block; the machine imposes no
// timeout.
type Hooks interface {
	// Create builds the service. On restart msg only carries the name.
	Create(msg CreateService) error
	// Created records that the service was built.
	Created(msg ServiceCreated) error
	Start() error
	Pause() error
	Continue() error
	Stop() error
	// Unload releases the service.
	Unload() error
	// Faulted records a fault reported by the environment while creating.
	Faulted(msg ServiceFault)
}

// NopHooks implements Hooks with methods that do nothing. Embed it to
// override only some hooks.
type NopHooks struct{}

func (NopHooks) Create(CreateService) error   { return nil }
func (NopHooks) Created(ServiceCreated) error { return nil }
func (NopHooks) Start() error                 { return nil }
func (NopHooks) Pause() error                 { return nil }
func (NopHooks) Continue() error              { return nil }
func (NopHooks) Stop() error                  { return nil }
func (NopHooks) Unload() error                { return nil }
func (NopHooks) Faulted(ServiceFault)         {}

var _ Hooks = NopHooks{}
