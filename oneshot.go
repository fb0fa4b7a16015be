package atomics

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

const (
	chanEmpty = iota
	// chanWriting makes Send a single claim on the slot, so a concurrent
	// IsReady never sees a half-written message.
	chanWriting
	chanReady
	chanDone
	chanClosed
)

// Channel carries exactly one message from one sender to one receiver.
//
// The state machine is empty → writing → ready → done. Violations of the
// one-message contract (a second Send, a Receive before the message is
// ready, a second Receive) are reported as errors and leave the channel
// intact.
//
// Close tears the channel down and drops a message that was sent but never
// received. It must not race with Send or Receive.
//
// The zero value is an empty channel.
type Channel[T any] struct {
	_       noCopy
	state   atomic.Uint32
	message T
}

// Send stores msg for the receiver. Only the first Send succeeds.
func (c *Channel[T]) Send(msg T) error {
	if !c.state.CompareAndSwap(chanEmpty, chanWriting) {
		if c.state.Load() == chanClosed {
			return errors.WithStack(ErrClosed)
		}
		return errors.WithStack(ErrAlreadySent)
	}
	c.message = msg
	// Publishes the message to the Receive that observes chanReady.
	c.state.Store(chanReady)
	return nil
}

// IsReady reports whether a message is waiting to be received.
func (c *Channel[T]) IsReady() bool {
	return c.state.Load() == chanReady
}

// Receive takes the message. It succeeds at most once, and only after the
// message is ready.
func (c *Channel[T]) Receive() (T, error) {
	if c.state.CompareAndSwap(chanReady, chanDone) {
		msg := c.message
		c.message = *new(T)
		return msg, nil
	}
	var zero T
	switch c.state.Load() {
	case chanDone:
		return zero, errors.WithStack(ErrAlreadyReceived)
	case chanClosed:
		return zero, errors.WithStack(ErrClosed)
	default:
		return zero, errors.WithStack(ErrNotReady)
	}
}

// Close drops an unclaimed message and makes further Send and Receive
// calls fail with ErrClosed. Closing twice is a no-op.
func (c *Channel[T]) Close() {
	if c.state.Swap(chanClosed) == chanReady {
		dropValue(&c.message)
	}
}

// Split resets c, dropping any unclaimed message, and hands out the two
// ends. The ends borrow c and must not be used after the next Split or
// Close.
func (c *Channel[T]) Split() (*Sender[T], *Receiver[T]) {
	if c.state.Swap(chanEmpty) == chanReady {
		dropValue(&c.message)
	}
	c.message = *new(T)
	return &Sender[T]{c: c}, &Receiver[T]{c: c}
}

// Sender is the sending end of a split Channel.
type Sender[T any] struct {
	c *Channel[T]
}

// Send delivers msg. The sender is spent afterwards, whatever the outcome.
func (s *Sender[T]) Send(msg T) error {
	if s.c == nil {
		return errors.WithStack(ErrAlreadySent)
	}
	c := s.c
	s.c = nil
	return c.Send(msg)
}

// Receiver is the receiving end of a split Channel.
type Receiver[T any] struct {
	c *Channel[T]
}

// IsReady reports whether the message has arrived.
func (r *Receiver[T]) IsReady() bool {
	return r.c != nil && r.c.IsReady()
}

// Receive takes the message. A successful Receive spends the receiver;
// ErrNotReady leaves it usable for another try.
func (r *Receiver[T]) Receive() (T, error) {
	if r.c == nil {
		var zero T
		return zero, errors.WithStack(ErrAlreadyReceived)
	}
	msg, err := r.c.Receive()
	if err == nil {
		r.c = nil
	}
	return msg, err
}
