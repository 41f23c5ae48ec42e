package server

import "sync"

// outbox is an unbounded FIFO of serialized messages for one connection.
// Any number of goroutines may push; exactly one (the write flow) drains.
// After close, push fails and the consumer sees open == false on its next
// drain.
type outbox struct {
	mu     sync.Mutex
	items  [][]byte
	closed bool
	signal chan struct{}
}

func newOutbox() *outbox {
	return &outbox{signal: make(chan struct{}, 1)}
}

// push appends payload without blocking. It returns false if the outbox has
// been closed.
func (o *outbox) push(payload []byte) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.items = append(o.items, payload)
	o.mu.Unlock()

	o.notify()
	return true
}

// ready fires after at least one push or the close since the last drain.
func (o *outbox) ready() <-chan struct{} {
	return o.signal
}

// drain takes every pending payload in push order.
func (o *outbox) drain() (batch [][]byte, open bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	batch, o.items = o.items, nil
	return batch, !o.closed
}

// close is idempotent.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.notify()
}

func (o *outbox) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *outbox) notify() {
	select {
	case o.signal <- struct{}{}:
	default:
	}
}
