package atomics

import (
	"sync/atomic"

	"github.com/llxisdsh/atomics/internal/futex"
)

// Guard is a held Mutex: either a *Mutex the caller has locked, or a live
// *MutexGuard. Condition variables release and re-acquire it around a wait.
type Guard interface {
	lockedMutex() *Mutex
}

// Condvar is a condition variable on a Mutex.
//
// Wait may return spuriously, including when a notification was aimed at a
// different waiter; callers re-check their predicate in a loop (or use
// WaitWhile). A notification issued while a waiter is between sampling the
// counter and parking is not lost: the counter has moved, so the park
// returns immediately.
//
// Size: 8 bytes.
type Condvar struct {
	_       noCopy
	counter atomic.Uint32
	waiters atomic.Uint32
}

// Wait releases g's mutex, blocks until notified (or spuriously woken), and
// re-acquires the mutex before returning. g stays valid across the call.
func (c *Condvar) Wait(g Guard) {
	m := g.lockedMutex()
	c.waiters.Add(1)

	// Sample before unlocking: a notify that lands after the unlock bumps
	// the counter and turns the park below into a no-op.
	seq := c.counter.Load()
	m.Unlock()

	futex.Wait(&c.counter, seq)

	c.waiters.Add(^uint32(0))
	m.Lock()
}

// WaitWhile waits until cond returns false. cond is evaluated with g's mutex
// held.
func (c *Condvar) WaitWhile(g Guard, cond func() bool) {
	for cond() {
		c.Wait(g)
	}
}

// NotifyOne wakes one waiter. With several goroutines racing through Wait,
// more than one of them may return.
func (c *Condvar) NotifyOne() {
	if c.waiters.Load() > 0 {
		c.counter.Add(1)
		futex.WakeOne(&c.counter)
	}
}

// NotifyAll wakes every waiter.
func (c *Condvar) NotifyAll() {
	if c.waiters.Load() > 0 {
		c.counter.Add(1)
		futex.WakeAll(&c.counter)
	}
}

const (
	strictSignalMask  = 1<<16 - 1
	strictWaiterShift = 16
	strictOneWaiter   = 1 << strictWaiterShift
)

// StrictCondvar is a condition variable that never wakes spuriously: every
// return from Wait consumes exactly one notification.
//
// The price is that notifications are not remembered. NotifyOne and
// NotifyAll only signal waiters already registered in Wait; a notify issued
// when nobody is waiting (an "early notify") is dropped, and a later Wait
// blocks until the next one. Use it only when the notifier is known to run
// after the waiter has registered, e.g. because both hold the same mutex.
//
// At most 65535 goroutines may wait at once.
type StrictCondvar struct {
	_ noCopy
	// state holds waiters<<16 | pending signals. Signals never exceed
	// waiters, and a waiter leaves by consuming one signal and its own
	// registration in a single CAS.
	state atomic.Uint32
}

// Wait releases g's mutex, blocks until a notification is delivered to this
// goroutine, and re-acquires the mutex before returning.
func (c *StrictCondvar) Wait(g Guard) {
	m := g.lockedMutex()
	if c.state.Add(strictOneWaiter)>>strictWaiterShift == 0 {
		panic("atomics: too many StrictCondvar waiters")
	}
	m.Unlock()

	for {
		s := c.state.Load()
		if s&strictSignalMask == 0 {
			futex.Wait(&c.state, s)
			continue
		}
		if c.state.CompareAndSwap(s, s-strictOneWaiter-1) {
			break
		}
	}
	m.Lock()
}

// NotifyOne delivers one notification if some waiter has none pending.
func (c *StrictCondvar) NotifyOne() {
	for {
		s := c.state.Load()
		if s&strictSignalMask >= s>>strictWaiterShift {
			return
		}
		if c.state.CompareAndSwap(s, s+1) {
			futex.WakeOne(&c.state)
			return
		}
	}
}

// NotifyAll delivers a notification to every registered waiter.
func (c *StrictCondvar) NotifyAll() {
	for {
		s := c.state.Load()
		w := s >> strictWaiterShift
		if s&strictSignalMask >= w {
			return
		}
		if c.state.CompareAndSwap(s, w<<strictWaiterShift|w) {
			futex.WakeAll(&c.state)
			return
		}
	}
}
