package atomics

import (
	"sync/atomic"
)

// Arc is an atomically reference-counted owning handle to a shared value.
//
// The payload and its allocation have separate lifetimes:
//   - the payload is live while at least one Arc exists; the last Drop
//     tears it down (runs its drop function or Dropper.Drop).
//   - the allocation is live while any Arc or Weak exists, so a Weak can
//     always inspect the counts and attempt an Upgrade.
//
// Arc guarantees lifetime, not mutual exclusion: concurrent access to the
// payload needs whatever synchronization the payload itself provides.
//
// An Arc is a small value; copying it does not add an owner. Use Clone for
// that, and call Drop exactly once per Clone (plus once for the original).
type Arc[T any] struct {
	inner *arcInner[T]
}

// Weak is a non-owning handle. It keeps the allocation addressable but not
// the payload; Upgrade recovers an Arc while the payload is still live.
type Weak[T any] struct {
	inner *arcInner[T]
}

type arcInner[T any] struct {
	// strong is the number of Arc handles.
	strong atomic.Uintptr
	// alloc is the number of Weak handles, plus one while any Arc exists.
	// arcLocked pins it while GetMut checks for uniqueness.
	alloc atomic.Uintptr
	drop  func(*T)
	value T
}

// arcLocked is the alloc sentinel that holds off Downgrade during GetMut.
const arcLocked = ^uintptr(0)

// NewArc allocates v with a strong count of 1.
func NewArc[T any](v T) Arc[T] {
	return NewArcFunc(v, nil)
}

// NewArcFunc is like NewArc, but runs drop on the payload when the last Arc
// is dropped. With a nil drop, a payload implementing Dropper is dropped
// through its Drop method.
func NewArcFunc[T any](v T, drop func(*T)) Arc[T] {
	a := newArc[T](drop)
	a.inner.value = v
	return a
}

func newArc[T any](drop func(*T)) Arc[T] {
	inner := &arcInner[T]{drop: drop}
	inner.strong.Store(1)
	inner.alloc.Store(1)
	return Arc[T]{inner: inner}
}

func (a Arc[T]) load() *arcInner[T] {
	if a.inner == nil {
		panic("atomics: use of dropped or zero Arc")
	}
	return a.inner
}

// Get returns a pointer to the payload. It is valid while a is.
func (a Arc[T]) Get() *T {
	return &a.load().value
}

// StrongCount returns the number of Arc handles.
func (a Arc[T]) StrongCount() int {
	return int(a.load().strong.Load())
}

// WeakCount returns the number of Weak handles.
func (a Arc[T]) WeakCount() int {
	n := a.load().alloc.Load()
	if n == arcLocked {
		// GetMut holds the count and only runs when there are no weaks.
		return 0
	}
	return int(n - 1)
}

// PtrEqual reports whether a and b share one allocation.
func (a Arc[T]) PtrEqual(b Arc[T]) bool {
	return a.inner == b.inner
}

// Clone returns a new owning handle to the same payload.
func (a Arc[T]) Clone() Arc[T] {
	inner := a.load()
	// No data is read on the strength of this increment, so no ordering
	// beyond the atomic add itself is needed.
	if inner.strong.Add(1)-1 > maxRefCount {
		fatal("Arc strong count overflow")
	}
	return Arc[T]{inner: inner}
}

// Drop releases this handle. Dropping the last Arc tears down the payload
// and releases the owners' share of the allocation. The handle is unusable
// afterwards.
func (a *Arc[T]) Drop() {
	inner := a.load()
	a.inner = nil

	// The decrement publishes every access this owner made. The owner that
	// observes 1 is ordered after all of them before touching the payload.
	if inner.strong.Add(^uintptr(0)) != 0 {
		return
	}

	if inner.drop != nil {
		inner.drop(&inner.value)
		inner.value = *new(T)
	} else {
		dropValue(&inner.value)
	}

	// No Arc left: give back the unit that stood for "an owner exists".
	releaseAlloc(inner)
}

// GetMut returns exclusive access to the payload when a is the only handle
// of any kind; otherwise it returns nil, false.
func (a *Arc[T]) GetMut() (*T, bool) {
	inner := a.load()

	// Pin alloc while counting owners so that no Downgrade can create a
	// Weak (and then an Arc) behind our back. Succeeding here orders us
	// after every earlier Weak drop.
	if !inner.alloc.CompareAndSwap(1, arcLocked) {
		return nil, false
	}
	unique := inner.strong.Load() == 1
	inner.alloc.Store(1)
	if !unique {
		return nil, false
	}
	// Observing strong == 1 orders us after every other owner's Drop.
	return &inner.value, true
}

// Downgrade returns a Weak handle to a's allocation.
func (a Arc[T]) Downgrade() Weak[T] {
	inner := a.load()
	var spins int
	n := inner.alloc.Load()
	for {
		if n == arcLocked {
			// A concurrent GetMut is checking uniqueness; it restores the
			// count right away.
			delay(&spins)
			n = inner.alloc.Load()
			continue
		}
		if n > maxRefCount {
			fatal("Arc weak count overflow")
		}
		if inner.alloc.CompareAndSwap(n, n+1) {
			return Weak[T]{inner: inner}
		}
		n = inner.alloc.Load()
	}
}

func (w Weak[T]) load() *arcInner[T] {
	if w.inner == nil {
		panic("atomics: use of dropped or zero Weak")
	}
	return w.inner
}

// Upgrade returns a new Arc if the payload is still live.
func (w Weak[T]) Upgrade() (Arc[T], bool) {
	inner := w.load()
	n := inner.strong.Load()
	for {
		// Never resurrect from zero: the payload may already be torn down.
		if n == 0 {
			return Arc[T]{}, false
		}
		if n > maxRefCount {
			fatal("Arc strong count overflow")
		}
		if inner.strong.CompareAndSwap(n, n+1) {
			return Arc[T]{inner: inner}, true
		}
		n = inner.strong.Load()
	}
}

// StrongCount returns the number of Arc handles still alive.
func (w Weak[T]) StrongCount() int {
	return int(w.load().strong.Load())
}

// Clone returns another Weak handle to the same allocation.
func (w Weak[T]) Clone() Weak[T] {
	inner := w.load()
	if inner.alloc.Add(1)-1 > maxRefCount {
		fatal("Arc weak count overflow")
	}
	return Weak[T]{inner: inner}
}

// Drop releases this handle. The handle is unusable afterwards.
func (w *Weak[T]) Drop() {
	inner := w.load()
	w.inner = nil
	releaseAlloc(inner)
}

// releaseAlloc gives back one unit of the allocation count and frees the
// block when it was the last one. Freeing clears the payload slot and the
// drop function so nothing stays reachable through a stale handle.
func releaseAlloc[T any](inner *arcInner[T]) {
	if inner.alloc.Add(^uintptr(0)) != 0 {
		return
	}
	inner.drop = nil
	inner.value = *new(T)
}
