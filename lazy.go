package atomics

import "sync/atomic"

// Lazy is a value computed on first use without blocking.
//
// Goroutines that race on the first Get may each run the initializer. One
// result is published, the others are dropped, and every caller observes
// the same pointer from then on. Use it when init is cheap enough that an
// occasional duplicate costs less than blocking.
type Lazy[T any] struct {
	_    noCopy
	ptr  atomic.Pointer[T]
	init func() T
}

// NewLazy returns a Lazy that computes its value with init.
func NewLazy[T any](init func() T) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Get returns the value, computing it if no goroutine has published one.
func (l *Lazy[T]) Get() *T {
	if p := l.ptr.Load(); p != nil {
		return p
	}
	v := l.init()
	p := &v
	if l.ptr.CompareAndSwap(nil, p) {
		return p
	}
	dropValue(p)
	return l.ptr.Load()
}
