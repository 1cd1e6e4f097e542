package channel

import (
	"sync"
	"sync/atomic"

	"github.com/bft-labs/svchost/pkg/lifecycle"
	"github.com/bft-labs/svchost/pkg/log"
)

// DefaultBufferSize is the capacity used when NewBuffered gets a size <= 0.
const DefaultBufferSize = 64

// Buffered is a lifecycle.Channel backed by a buffered Go channel. Send
// never blocks: when the buffer is full the message is dropped and a
// warning is logged.
type Buffered struct {
	ch      chan lifecycle.Message
	logger  log.Logger
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewBuffered creates a sink holding up to size undelivered messages.
func NewBuffered(size int, logger log.Logger) *Buffered {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Buffered{
		ch:     make(chan lifecycle.Message, size),
		logger: logger,
	}
}

// Send queues msg for readers of Messages.
func (b *Buffered) Send(msg lifecycle.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	select {
	case b.ch <- msg:
	default:
		n := b.dropped.Add(1)
		b.logger.Warn("notification dropped, buffer full",
			log.String("service", msg.ServiceName()),
			log.Stringer("kind", msg.Kind()),
			log.Int("capacity", cap(b.ch)),
			log.Any("dropped_total", n),
		)
	}
}

// Messages returns the receive side. It is closed by Close.
func (b *Buffered) Messages() <-chan lifecycle.Message {
	return b.ch
}

// Dropped reports how many messages were discarded because the buffer
// was full.
func (b *Buffered) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes the receive side. Later sends are discarded.
func (b *Buffered) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}
