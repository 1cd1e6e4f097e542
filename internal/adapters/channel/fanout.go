package channel

import "github.com/bft-labs/svchost/pkg/lifecycle"

// Fanout forwards each message to every sink in order.
type Fanout []lifecycle.Channel

// NewFanout returns a Fanout over the non-nil sinks.
func NewFanout(sinks ...lifecycle.Channel) Fanout {
	out := make(Fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f Fanout) Send(msg lifecycle.Message) {
	for _, s := range f {
		s.Send(msg)
	}
}
