package service

import (
	"errors"
	"fmt"
)

// ErrNilService is wrapped in a BuildError when the factory returns a nil
// service without an error.
var ErrNilService = errors.New("service: factory returned nil service")

// BuildError reports that a service could not be constructed.
type BuildError struct {
	// ServiceType is the Go type the factory was asked to produce.
	ServiceType string
	Err         error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("service: an error occurred creating the service: %s: %v", e.ServiceType, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
