// Package domain holds the error values shared by the host layers.
//
// It has no dependencies on infrastructure (HTTP, file system, logging).
// The lifecycle states, events and service contracts live in pkg/lifecycle
// and pkg/service; this package only adds what the hosting side reports.
package domain
