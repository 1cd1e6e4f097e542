// Package ports defines the interfaces that connect the host application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Coordinator]: the sink lifecycle notifications are published to
//   - [Controller]: what plugins may ask of a running host
//   - [HTTPClient]: HTTP request abstraction for the webhook adapter
//
// The application layer (internal/app) depends only on these interfaces and
// on pkg/lifecycle. Adapters under internal/adapters implement them with
// Go channels, zerolog, HTTP and Prometheus.
package ports
