package atomics

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/llxisdsh/atomics/internal/futex"
)

const (
	rwUnlocked = iota
	rwReadLocked
	rwWriteLocked

	// rwReadersUnlocking pins the reader count while the last reader flips
	// the lock word back to unlocked; arriving readers wait it out.
	rwReadersUnlocking = math.MaxUint32
)

// RWLock is a blocking reader-writer lock built from two words: a count of
// registered readers and a tri-state lock word (unlocked, read-locked,
// write-locked).
//
// Readers register first and then join an existing read lock or take the
// word from unlocked. The last reader out resets the word, pinning the count
// with a sentinel so a reader arriving at that instant cannot be lost.
//
// Fairness: readers are preferred. A continuous stream of overlapping
// readers keeps the lock read-locked and can starve writers indefinitely.
//
// The zero value is an unlocked RWLock. Size: 12 bytes.
type RWLock struct {
	_       noCopy
	readers atomic.Uint32
	state   atomic.Uint32
	// writers counts goroutines parked in Lock, so unlocks know a writer
	// needs waking even when no reader is registered.
	writers atomic.Uint32
}

// RLock acquires a read lock, blocking while a writer holds the lock.
func (l *RWLock) RLock() {
	l.register()
	for {
		if l.state.CompareAndSwap(rwUnlocked, rwReadLocked) {
			return
		}
		switch s := l.state.Load(); s {
		case rwReadLocked:
			// Our registration keeps the last reader from resetting the
			// word, so joining is safe. The load orders us after the
			// writes of the writer that preceded this read phase.
			return
		case rwWriteLocked:
			futex.Wait(&l.state, rwWriteLocked)
		}
	}
}

func (l *RWLock) register() {
	var spins int
	for {
		r := l.readers.Load()
		if r == rwReadersUnlocking {
			delay(&spins)
			continue
		}
		if r == rwReadersUnlocking-1 {
			panic("atomics: too many RWLock readers")
		}
		if l.readers.CompareAndSwap(r, r+1) {
			return
		}
	}
}

// RUnlock releases a read lock.
func (l *RWLock) RUnlock() {
	for {
		r := l.readers.Load()
		switch r {
		case 0:
			panic("atomics: RUnlock of unlocked RWLock")
		case rwReadersUnlocking:
			// Another reader is resetting the word. Our own registration
			// would have kept the count above zero, so this is misuse.
			panic("atomics: RUnlock of unlocked RWLock")
		case 1:
			// Last reader out. Going from 1 straight to the sentinel keeps
			// the count from ever reading zero while the word is still
			// read-locked, so no writer can get in before the reset.
			if !l.readers.CompareAndSwap(1, rwReadersUnlocking) {
				continue
			}
			l.state.Store(rwUnlocked)
			l.readers.Store(0)
			if l.writers.Load() > 0 {
				futex.WakeOne(&l.state)
			}
			return
		default:
			if l.readers.CompareAndSwap(r, r-1) {
				return
			}
		}
	}
}

// Lock acquires the write lock, blocking until there are no readers or
// writers.
func (l *RWLock) Lock() {
	if l.state.CompareAndSwap(rwUnlocked, rwWriteLocked) {
		return
	}
	l.writers.Add(1)
	for {
		if l.state.CompareAndSwap(rwUnlocked, rwWriteLocked) {
			break
		}
		if s := l.state.Load(); s != rwUnlocked {
			futex.Wait(&l.state, s)
		}
	}
	l.writers.Add(^uint32(0))
}

// TryLock acquires the write lock if the lock is free.
func (l *RWLock) TryLock() bool {
	return l.state.CompareAndSwap(rwUnlocked, rwWriteLocked)
}

// Unlock releases the write lock. Registered readers are all woken; if
// there are none, one parked writer is.
func (l *RWLock) Unlock() {
	if l.state.Swap(rwUnlocked) != rwWriteLocked {
		panic("atomics: Unlock of RWLock not write-locked")
	}
	if l.readers.Load() > 0 {
		futex.WakeAll(&l.state)
	} else if l.writers.Load() > 0 {
		futex.WakeOne(&l.state)
	}
}

// RLocker returns a sync.Locker that takes the read side of l.
func (l *RWLock) RLocker() sync.Locker {
	return (*rlocker)(l)
}

type rlocker RWLock

func (r *rlocker) Lock()   { (*RWLock)(r).RLock() }
func (r *rlocker) Unlock() { (*RWLock)(r).RUnlock() }

// RWLockOf is an RWLock guarding a value of type T.
type RWLockOf[T any] struct {
	lock  RWLock
	value T
}

// NewRWLockOf returns an RWLockOf guarding v.
func NewRWLockOf[T any](v T) *RWLockOf[T] {
	return &RWLockOf[T]{value: v}
}

// ReadGuard is proof that a read lock on its RWLockOf is held.
type ReadGuard[T any] struct {
	l *RWLockOf[T]
}

// WriteGuard is proof that the write lock on its RWLockOf is held.
type WriteGuard[T any] struct {
	l *RWLockOf[T]
}

// RLock acquires a read lock and returns the guard that releases it.
func (l *RWLockOf[T]) RLock() ReadGuard[T] {
	l.lock.RLock()
	return ReadGuard[T]{l: l}
}

// Lock acquires the write lock and returns the guard that releases it.
func (l *RWLockOf[T]) Lock() WriteGuard[T] {
	l.lock.Lock()
	return WriteGuard[T]{l: l}
}

// Read runs fn under a read lock. fn must not modify *v.
func (l *RWLockOf[T]) Read(fn func(v *T)) {
	g := l.RLock()
	defer g.Unlock()
	fn(g.Value())
}

// Write runs fn under the write lock.
func (l *RWLockOf[T]) Write(fn func(v *T)) {
	g := l.Lock()
	defer g.Unlock()
	fn(g.Value())
}

// Value returns the guarded value for reading. It must not be modified
// and the pointer must not outlive the guard.
func (g *ReadGuard[T]) Value() *T {
	if g.l == nil {
		panic("atomics: use of released ReadGuard")
	}
	return &g.l.value
}

// Unlock releases the read lock. The guard is unusable afterwards.
func (g *ReadGuard[T]) Unlock() {
	if g.l == nil {
		panic("atomics: unlock of released ReadGuard")
	}
	l := g.l
	g.l = nil
	l.lock.RUnlock()
}

// Value returns the guarded value. The pointer must not outlive the guard.
func (g *WriteGuard[T]) Value() *T {
	if g.l == nil {
		panic("atomics: use of released WriteGuard")
	}
	return &g.l.value
}

// Unlock releases the write lock. The guard is unusable afterwards.
func (g *WriteGuard[T]) Unlock() {
	if g.l == nil {
		panic("atomics: unlock of released WriteGuard")
	}
	l := g.l
	g.l = nil
	l.lock.Unlock()
}
