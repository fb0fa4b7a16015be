package atomics

import (
	"sync/atomic"

	"github.com/llxisdsh/atomics/internal/futex"
)

const (
	mutexUnlocked = iota
	// mutexLocked means held with no goroutine parked; Unlock can skip the wake.
	mutexLocked
	// mutexContended means held with goroutines possibly parked on state.
	mutexContended
)

// Mutex is a blocking mutual exclusion lock.
//
// An uncontended Lock/Unlock pair is two atomic operations and no wake-up.
// Under contention a waiter spins briefly, in case the holder is about to
// release, and then parks on the state word.
//
// The zero value is an unlocked mutex. Size: 4 bytes.
type Mutex struct {
	_     noCopy
	state atomic.Uint32
}

// Lock acquires the mutex, blocking until it is available.
func (m *Mutex) Lock() {
	// Winning this CAS while nobody else is trying means Unlock may skip
	// the wake-up entirely. Losers mark the state contended, so the winner
	// learns it has to wake somebody.
	if !m.state.CompareAndSwap(mutexUnlocked, mutexLocked) {
		m.lockSlow()
	}
}

func (m *Mutex) lockSlow() {
	// Spin only while nobody is parked; once the lock is contended every
	// newcomer would just burn CPU next to the sleepers.
	var spins int
	for m.state.Load() == mutexLocked && trySpin(&spins) {
	}
	if m.state.CompareAndSwap(mutexUnlocked, mutexLocked) {
		return
	}
	// Taking the lock through this swap leaves it marked contended, which
	// costs at most one unnecessary wake-up on Unlock.
	for m.state.Swap(mutexContended) != mutexUnlocked {
		futex.Wait(&m.state, mutexContended)
	}
}

// TryLock acquires the mutex if it is free and reports whether it did.
func (m *Mutex) TryLock() bool {
	return m.state.CompareAndSwap(mutexUnlocked, mutexLocked)
}

// Unlock releases the mutex, waking one parked goroutine if any may exist.
// It is a run-time error if m is not locked on entry to Unlock.
func (m *Mutex) Unlock() {
	switch m.state.Swap(mutexUnlocked) {
	case mutexUnlocked:
		panic("atomics: unlock of unlocked Mutex")
	case mutexContended:
		futex.WakeOne(&m.state)
	}
}

// isLocked is for tests.
func (m *Mutex) isLocked() bool {
	return m.state.Load() != mutexUnlocked
}

// lockedMutex lets a bare Mutex be passed to Condvar.Wait.
func (m *Mutex) lockedMutex() *Mutex {
	return m
}

// MutexOf is a Mutex guarding a value of type T.
// The value is reachable only through the guard returned by Lock.
type MutexOf[T any] struct {
	mu    Mutex
	value T
}

// NewMutexOf returns a MutexOf guarding v.
func NewMutexOf[T any](v T) *MutexOf[T] {
	return &MutexOf[T]{value: v}
}

// MutexGuard is proof that its MutexOf is held.
type MutexGuard[T any] struct {
	m *MutexOf[T]
}

// Lock acquires the mutex and returns the guard that releases it.
//
//	g := m.Lock()
//	defer g.Unlock()
//	*g.Value() += 1
func (m *MutexOf[T]) Lock() MutexGuard[T] {
	m.mu.Lock()
	return MutexGuard[T]{m: m}
}

// TryLock acquires the mutex if it is free.
func (m *MutexOf[T]) TryLock() (MutexGuard[T], bool) {
	if !m.mu.TryLock() {
		return MutexGuard[T]{}, false
	}
	return MutexGuard[T]{m: m}, true
}

// With runs fn with the mutex held. The mutex is released even if fn panics.
func (m *MutexOf[T]) With(fn func(v *T)) {
	g := m.Lock()
	defer g.Unlock()
	fn(g.Value())
}

// Value returns the guarded value. The pointer must not outlive the guard.
func (g *MutexGuard[T]) Value() *T {
	if g.m == nil {
		panic("atomics: use of released MutexGuard")
	}
	return &g.m.value
}

// Unlock releases the mutex. The guard is unusable afterwards.
func (g *MutexGuard[T]) Unlock() {
	if g.m == nil {
		panic("atomics: unlock of released MutexGuard")
	}
	m := g.m
	g.m = nil
	m.mu.Unlock()
}

func (g *MutexGuard[T]) lockedMutex() *Mutex {
	if g.m == nil {
		panic("atomics: wait on released MutexGuard")
	}
	return &g.m.mu
}
