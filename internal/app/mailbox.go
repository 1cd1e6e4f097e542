package app

import (
	"sync"

	"github.com/bft-labs/svchost/pkg/lifecycle"
)

// mailbox is an unbounded FIFO of messages for one controller. post never
// blocks, so hooks running on the consumer goroutine may post to it.
type mailbox struct {
	mu     sync.Mutex
	queue  []lifecycle.Message
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (b *mailbox) post(msg lifecycle.Message) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *mailbox) take() (lifecycle.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return nil, false
	}
	msg := b.queue[0]
	b.queue[0] = nil
	b.queue = b.queue[1:]
	return msg, true
}

// stopRequest asks the controller to stop and unload the service as soon as
// the lifecycle allows it. It is handled by the controller, never delivered
// to the machine.
type stopRequest struct{ name string }

func (r stopRequest) ServiceName() string { return r.name }
func (stopRequest) Kind() lifecycle.Kind  { return 0 }
