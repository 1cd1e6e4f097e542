// Package channel provides lifecycle.Channel sinks that deliver
// notifications in-process: to a Go channel, to the log, or to several
// other sinks at once.
package channel
