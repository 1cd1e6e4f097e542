package ports

import "github.com/bft-labs/svchost/pkg/lifecycle"

// Coordinator receives lifecycle notifications. Send must not block.
type Coordinator = lifecycle.Channel

// Controller is the part of a running host that plugins may drive.
type Controller interface {
	Name() string
	State() lifecycle.State
	Restart()
	Stop()
}
