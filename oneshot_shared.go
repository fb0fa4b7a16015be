package atomics

import "github.com/pkg/errors"

// NewOneShot allocates a Channel shared by its two ends. Each end owns a
// reference to the channel; when both have been dropped, the channel is
// closed and an unreceived message is dropped with it.
func NewOneShot[T any]() (*SharedSender[T], *SharedReceiver[T]) {
	a := newArc[Channel[T]](func(c *Channel[T]) { c.Close() })
	return &SharedSender[T]{ch: a.Clone()}, &SharedReceiver[T]{ch: a}
}

// SharedSender is the sending end returned by NewOneShot.
type SharedSender[T any] struct {
	ch Arc[Channel[T]]
}

// Send delivers msg and releases the sender's reference.
func (s *SharedSender[T]) Send(msg T) error {
	if s.ch.inner == nil {
		return errors.WithStack(ErrAlreadySent)
	}
	err := s.ch.Get().Send(msg)
	s.ch.Drop()
	return err
}

// Drop gives up the sender without sending. It is a no-op after Send.
func (s *SharedSender[T]) Drop() {
	if s.ch.inner != nil {
		s.ch.Drop()
	}
}

// SharedReceiver is the receiving end returned by NewOneShot.
type SharedReceiver[T any] struct {
	ch Arc[Channel[T]]
}

// IsReady reports whether the message has arrived.
func (r *SharedReceiver[T]) IsReady() bool {
	return r.ch.inner != nil && r.ch.Get().IsReady()
}

// Receive takes the message. A successful Receive releases the receiver's
// reference; ErrNotReady leaves the receiver usable.
func (r *SharedReceiver[T]) Receive() (T, error) {
	if r.ch.inner == nil {
		var zero T
		return zero, errors.WithStack(ErrAlreadyReceived)
	}
	msg, err := r.ch.Get().Receive()
	if err == nil {
		r.ch.Drop()
	}
	return msg, err
}

// Drop gives up the receiver. A message that was sent but not received is
// dropped once the sender is gone too.
func (r *SharedReceiver[T]) Drop() {
	if r.ch.inner != nil {
		r.ch.Drop()
	}
}
