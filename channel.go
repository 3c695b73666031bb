package nchannels

import (
	"context"
	"sync"
)

// A Channel is a bounded, typed conduit linking one or more senders with
// one or more receivers. It behaves like a native Go channel with a fixed
// buffer, except that it is a first-class value with an explicit close
// protocol, cancellable operations, and a readiness notifier that
// [Select] uses to race several channels at once.
//
// A Channel must be created with [NewChannel]; the zero Channel is not
// ready for use. A Channel must not be copied after its first use.
type Channel[T any] struct {
	mu sync.Mutex

	capacity int
	buf      []T // ring of length capacity
	start    int // index of the oldest buffered item
	count    int // number of items currently buffered, in [0, capacity]

	senders   []*parkedSender[T]
	receivers []*parkedReceiver[T]

	closed bool
	ready  readySlot // guarded by mu; see ready.go
}

type parkedSender[T any] struct {
	item T
	done chan error // capacity 1
}

type parkedReceiver[T any] struct {
	done chan ReceiveResult[T] // capacity 1
}

// NewChannel creates a new open Channel with the given buffer capacity.
// It reports [ErrInvalidCapacity] if capacity < 1.
func NewChannel[T any](capacity int) (*Channel[T], error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return &Channel[T]{capacity: capacity, buf: make([]T, capacity)}, nil
}

// Send delivers item to c, buffering it or handing it directly to a
// parked receiver if possible, or else blocking until a receiver takes it,
// c is closed, or ctx ends.
//
// Send reports [ErrClosed] immediately if c is already closed, or later if
// ctx's deadline has not passed but c is closed by another goroutine while
// this call is parked. Send never buffers or delivers item once it has
// returned a non-nil error.
func (c *Channel[T]) Send(ctx context.Context, item T) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if ok, fire := c.trySendLocked(item); ok {
		c.mu.Unlock()
		if fire != nil {
			fire()
		}
		return nil
	}

	p := &parkedSender[T]{item: item, done: make(chan error, 1)}
	c.senders = append(c.senders, p)
	c.mu.Unlock()

	select {
	case err := <-p.done:
		return err
	case <-ctx.Done():
		c.cancelSender(p)
		select {
		case err := <-p.done:
			return err
		default:
			return ctx.Err()
		}
	}
}

// TrySend attempts to buffer or hand off item without blocking. It reports
// whether item was accepted; it never blocks and never parks a sender.
func (c *Channel[T]) TrySend(item T) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	ok, fire := c.trySendLocked(item)
	c.mu.Unlock()
	if fire != nil {
		fire()
	}
	return ok
}

// trySendLocked attempts the non-parking paths of Send: direct handoff to a
// parked receiver, or buffering. The caller must hold mu and must have
// already ruled out c.closed. On success it reports the readySlot callback
// (if any) to invoke after unlocking.
func (c *Channel[T]) trySendLocked(item T) (ok bool, fire func()) {
	if len(c.receivers) > 0 {
		r := c.receivers[0]
		c.receivers = c.receivers[1:]
		r.done <- ReceiveResult[T]{Value: item, Ok: true}
		return true, nil
	}
	if c.count < c.capacity {
		c.pushBuffer(item)
		return true, c.ready.fire()
	}
	return false, nil
}

// Receive takes the next item from c, blocking until one is available, c
// is closed, or ctx ends. Ok is false exactly when c was drained and
// closed. Receive never reports [ErrClosed]; closure is signalled by a
// false Ok, not an error. A non-nil error means ctx ended first.
func (c *Channel[T]) Receive(ctx context.Context) (ReceiveResult[T], error) {
	c.mu.Lock()
	if res, ok, fire := c.tryReceiveLocked(); ok {
		c.mu.Unlock()
		if fire != nil {
			fire()
		}
		return res, nil
	}

	if c.closed {
		c.mu.Unlock()
		return ReceiveResult[T]{}, nil
	}

	p := &parkedReceiver[T]{done: make(chan ReceiveResult[T], 1)}
	c.receivers = append(c.receivers, p)
	fire := c.ready.fire() // spurious-wake hint; no item is actually available yet.
	c.mu.Unlock()
	if fire != nil {
		fire()
	}

	select {
	case res := <-p.done:
		return res, nil
	case <-ctx.Done():
		c.cancelReceiver(p)
		select {
		case res := <-p.done:
			return res, nil
		default:
			return ReceiveResult[T]{}, ctx.Err()
		}
	}
}

// TryReceive attempts to take the next item from c without blocking. Ok
// reports whether an item was returned; when both return values are false
// the channel was neither ready nor closed, so the caller should try again
// later rather than treating this as closure.
func (c *Channel[T]) TryReceive() (res ReceiveResult[T], ok bool) {
	c.mu.Lock()
	if res, ok, fire := c.tryReceiveLocked(); ok {
		c.mu.Unlock()
		if fire != nil {
			fire()
		}
		return res, true
	}
	if c.closed {
		c.mu.Unlock()
		return ReceiveResult[T]{}, true
	}
	c.mu.Unlock()
	return ReceiveResult[T]{}, false
}

// tryReceiveLocked attempts to pop a buffered item, refilling the buffer
// from the head of the parked-sender queue if any is waiting. The caller
// must hold mu. ok is false if the buffer is currently empty (the caller
// must then consult c.closed itself).
func (c *Channel[T]) tryReceiveLocked() (res ReceiveResult[T], ok bool, fire func()) {
	if c.count == 0 {
		return ReceiveResult[T]{}, false, nil
	}
	item := c.popBuffer()
	if len(c.senders) > 0 {
		s := c.senders[0]
		c.senders = c.senders[1:]
		c.pushBuffer(s.item)
		s.done <- nil
	} else {
		fire = c.ready.fire()
	}
	return ReceiveResult[T]{Value: item, Ok: true}, true, fire
}

// Close closes c. Any parked receivers are resolved with a closed result;
// any parked senders fail with [ErrClosed] and their items are discarded.
// Close is idempotent: calling it again after the first call has no
// further effect. Close never blocks.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true

	receivers := c.receivers
	c.receivers = nil
	for _, r := range receivers {
		r.done <- ReceiveResult[T]{}
	}

	senders := c.senders
	c.senders = nil
	for _, s := range senders {
		s.done <- ErrClosed
	}

	fire := c.ready.fire()
	c.mu.Unlock()
	if fire != nil {
		fire()
	}
}

// registerReceiveReady registers cb to learn when a Receive on c might
// succeed: if c is already closed or already has a buffered item, cb runs
// immediately, synchronously, under c's mutex; cb must not call back into
// c. Otherwise cb is stored and will run later, outside the mutex, from
// whichever of Send, Receive, or Close next fires it.
func (c *Channel[T]) registerReceiveReady(cb func()) {
	c.mu.Lock()
	immediate := c.closed || c.count > 0
	c.ready.register(immediate, cb)
	c.mu.Unlock()
}

// clearReceiveReady empties c's readiness slot without invoking any
// callback still pending in it.
func (c *Channel[T]) clearReceiveReady() {
	c.mu.Lock()
	c.ready.clear()
	c.mu.Unlock()
}

func (c *Channel[T]) cancelSender(p *parkedSender[T]) {
	c.mu.Lock()
	for i, s := range c.senders {
		if s == p {
			c.senders = append(c.senders[:i], c.senders[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

func (c *Channel[T]) cancelReceiver(p *parkedReceiver[T]) {
	c.mu.Lock()
	for i, r := range c.receivers {
		if r == p {
			c.receivers = append(c.receivers[:i], c.receivers[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

// pushBuffer and popBuffer assume the caller holds mu and that the
// operation is valid (room to push, an item to pop).
func (c *Channel[T]) pushBuffer(item T) {
	idx := (c.start + c.count) % c.capacity
	c.buf[idx] = item
	c.count++
}

func (c *Channel[T]) popBuffer() T {
	item := c.buf[c.start]
	var zero T
	c.buf[c.start] = zero
	c.start = (c.start + 1) % c.capacity
	c.count--
	return item
}
