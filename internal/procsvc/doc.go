// Package procsvc hosts an external command as a service. Start launches
// the process, Stop asks it to terminate and escalates to kill after a
// timeout, and Pause/Continue suspend and resume it where the platform
// supports that. When the process exits on its own the host is asked to
// stop.
package procsvc
