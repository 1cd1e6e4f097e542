// Package lifecycle implements the per-service lifecycle engine.
//
// A [Machine] drives one hosted service through create, start, run,
// pause/continue, stop, restart and unload. Events are delivered with
// [Machine.Deliver]; for each (state, event) pair found in the transition
// table the machine runs the listed steps in order, calling into [Hooks]
// and publishing notifications to a [Channel]. A hook that returns an
// error (or panics) publishes a [ServiceFault] and moves the machine to
// [Failed], which is terminal.
//
// # Usage
//
//	m, err := lifecycle.NewMachine("billing", channel, hooks,
//	    lifecycle.WithLogger(logger),
//	    lifecycle.WithUnmatchedPolicy(lifecycle.LogUnmatched),
//	)
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	_ = m.Deliver(lifecycle.CreateService{Name: "billing"})
//
// # State Machine
//
//	Initial           --CreateService-->    Creating
//	Creating          --ServiceCreated-->   Created --> Starting
//	Creating          --ServiceFault-->     Failed
//	Created           --StartService-->     Starting
//	Created           --ServiceRunning-->   Running
//	Starting          --ServiceRunning-->   Running
//	Running           --PauseService-->     Pausing
//	Pausing           --ServicePaused-->    Paused
//	Paused            --ContinueService-->  Continuing
//	Continuing        --ServiceContinued--> Running
//	Running           --StopService-->      Stopping
//	Running           --RestartService-->   StoppingToRestart
//	Stopping          --ServiceStopped-->   Stopped
//	Stopped           --UnloadService-->    Unloading
//	Unloading         --ServiceUnloaded-->  Completed
//	StoppingToRestart --ServiceStopped-->   CreatingToRestart
//	CreatingToRestart --ServiceCreated-->   Restarting
//	Restarting        --ServiceRunning-->   Running
//
// Any other pair is unmatched: the state does not change, no hook runs and
// nothing is published. See [UnmatchedPolicy].
//
// # Concurrency
//
// A Machine is not safe for concurrent use. The host must deliver events
// for one machine serially. Separate machines share no mutable state.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
package lifecycle
