package atomics

import "sync/atomic"

// UncheckedChannel is the minimal one-shot channel: a slot and a ready
// flag, nothing more.
//
// The caller must call Send at most once and must call Receive only after
// IsReady has reported true. Breaking either rule is a data race; Receive
// before the message is ready returns whatever the slot holds.
type UncheckedChannel[T any] struct {
	_       noCopy
	ready   atomic.Bool
	message T
}

// Send stores msg and marks the channel ready.
func (c *UncheckedChannel[T]) Send(msg T) {
	c.message = msg
	c.ready.Store(true)
}

// IsReady reports whether a message has been sent and not yet received.
func (c *UncheckedChannel[T]) IsReady() bool {
	return c.ready.Load()
}

// Receive takes the message and clears the ready flag.
func (c *UncheckedChannel[T]) Receive() T {
	c.ready.Store(false)
	msg := c.message
	c.message = *new(T)
	return msg
}

// Close drops a message that was sent but never received.
func (c *UncheckedChannel[T]) Close() {
	if c.ready.Swap(false) {
		dropValue(&c.message)
	}
}
