package atomics

import (
	"sync/atomic"
)

// SpinLock is a busy-wait mutual exclusion lock.
//
// It never parks the goroutine, so it only pays off for critical sections of
// a few memory accesses. It is unfair: under contention a spinning goroutine
// can in principle be starved indefinitely.
//
// Size: 4 bytes.
type SpinLock struct {
	_      noCopy
	locked atomic.Bool
}

// Lock acquires the lock, spinning until it is free.
func (l *SpinLock) Lock() {
	if l.locked.CompareAndSwap(false, true) {
		return
	}
	l.lockSlow()
}

func (l *SpinLock) lockSlow() {
	var spins int
	for {
		// Test before test-and-set so waiters spin on a shared cache line
		// instead of bouncing it with writes.
		if !l.locked.Load() && !l.locked.Swap(true) {
			return
		}
		delay(&spins)
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *SpinLock) TryLock() bool {
	return !l.locked.Load() && l.locked.CompareAndSwap(false, true)
}

// Unlock releases the lock. The store publishes every write made while
// the lock was held to the next goroutine that acquires it.
func (l *SpinLock) Unlock() {
	if !l.locked.Swap(false) {
		panic("atomics: unlock of unlocked SpinLock")
	}
}

// SpinLockOf is a SpinLock guarding a value of type T.
// The value is reachable only through the guard returned by Lock.
type SpinLockOf[T any] struct {
	lock  SpinLock
	value T
}

// NewSpinLockOf returns a SpinLockOf guarding v.
func NewSpinLockOf[T any](v T) *SpinLockOf[T] {
	return &SpinLockOf[T]{value: v}
}

// SpinGuard is proof that its SpinLockOf is held.
type SpinGuard[T any] struct {
	l *SpinLockOf[T]
}

// Lock acquires the lock and returns the guard that releases it.
//
//	g := l.Lock()
//	defer g.Unlock()
func (l *SpinLockOf[T]) Lock() SpinGuard[T] {
	l.lock.Lock()
	return SpinGuard[T]{l: l}
}

// TryLock acquires the lock if it is free.
func (l *SpinLockOf[T]) TryLock() (SpinGuard[T], bool) {
	if !l.lock.TryLock() {
		return SpinGuard[T]{}, false
	}
	return SpinGuard[T]{l: l}, true
}

// With runs fn with the lock held. The lock is released even if fn panics.
func (l *SpinLockOf[T]) With(fn func(v *T)) {
	g := l.Lock()
	defer g.Unlock()
	fn(g.Value())
}

// Value returns the guarded value. The pointer must not outlive the guard.
func (g *SpinGuard[T]) Value() *T {
	if g.l == nil {
		panic("atomics: use of released SpinGuard")
	}
	return &g.l.value
}

// Unlock releases the lock. The guard is unusable afterwards.
func (g *SpinGuard[T]) Unlock() {
	if g.l == nil {
		panic("atomics: unlock of released SpinGuard")
	}
	l := g.l
	g.l = nil
	l.lock.Unlock()
}
