// Package service bridges the lifecycle engine to a concrete hosted service.
//
// A [Builder] constructs a [Handle] from [HostSettings]. The handle forwards
// start, pause, continue and stop to functions bound when the builder was
// created, and releases the service on Close.
//
// # Usage
//
//	b := service.NewDelegateBuilder(
//	    func(s service.HostSettings) (*Worker, error) { return NewWorker(s.Name) },
//	    func(w *Worker, hc service.HostControl) (bool, error) { return true, w.Start() },
//	    func(w *Worker, hc service.HostControl) (bool, error) { return true, w.Stop() },
//	    service.WithPause(func(w *Worker, hc service.HostControl) (bool, error) { return true, w.Pause() }),
//	)
//
//	h, err := b.Build(settings)
//	if err != nil {
//	    var be *service.BuildError
//	    errors.As(err, &be) // be.ServiceType == "*main.Worker"
//	}
//
// # Completion
//
// Every operation returns whether it is already complete. A false result
// means the service will report completion later through the host; the
// engine waits for that event.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package service
