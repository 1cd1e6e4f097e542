package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Deliver after Close.
	ErrClosed = errors.New("lifecycle: machine closed")

	// ErrUnhandledEvent is returned by Deliver under RejectUnmatched when
	// the current state has no handler for the event.
	ErrUnhandledEvent = errors.New("lifecycle: unhandled event")

	// ErrNilMessage is returned by Deliver for a nil message.
	ErrNilMessage = errors.New("lifecycle: nil message")

	// ErrEmptyName is returned by NewMachine when the service name is empty.
	ErrEmptyName = errors.New("lifecycle: empty service name")

	// ErrNilChannel is returned by NewMachine without a coordinator channel.
	ErrNilChannel = errors.New("lifecycle: nil coordinator channel")
)

// PanicError is the fault recorded when a hook panics.
type PanicError struct {
	Hook  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("lifecycle: %s hook panicked: %v", e.Hook, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
