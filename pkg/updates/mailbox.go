package updates

import (
	"context"
	"sync"
)

// Mailbox is the unbounded FIFO queue between producers and the scheduler.
// Any number of goroutines may Append concurrently; exactly one consumer
// (the scheduler loop) takes. Append never blocks and never fails.
//
// The Ready channel lets the single consumer select over "mailbox has work"
// alongside other channels (the scheduler waits on it together with the
// in-flight completion channel). A receive from Ready is a hint, not a
// guarantee: callers must follow it with TryTake and tolerate a miss.
type Mailbox struct {
	mu    sync.Mutex
	queue []Update
	ready chan struct{}
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Append enqueues an update. Never blocks, even with a slow consumer.
func (m *Mailbox) Append(u Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, u)
	m.signalLocked()
}

// TryTake removes and returns the oldest update, if any.
func (m *Mailbox) TryTake() (Update, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return Update{}, false
	}
	u := m.queue[0]
	m.queue = m.queue[1:]
	if len(m.queue) == 0 {
		// Drop a stale ready signal so the consumer does not wake for an
		// empty queue.
		select {
		case <-m.ready:
		default:
		}
	} else {
		m.signalLocked()
	}
	return u, true
}

// Take blocks until an update is available or ctx is done.
func (m *Mailbox) Take(ctx context.Context) (Update, error) {
	for {
		if u, ok := m.TryTake(); ok {
			return u, nil
		}
		select {
		case <-ctx.Done():
			return Update{}, ctx.Err()
		case <-m.ready:
		}
	}
}

// HasMore reports whether at least one update is queued.
func (m *Mailbox) HasMore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue) > 0
}

// Len returns the number of queued updates.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Ready returns the consumer's wake-up channel.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

func (m *Mailbox) signalLocked() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}
