// Package atomics provides low-level synchronization and shared-ownership
// primitives built from atomic operations and a futex-style wait/wake
// facility:
//
//   - Arc and Weak: reference-counted shared ownership with explicit
//     payload teardown.
//   - SpinLock: busy-wait mutual exclusion for very short critical sections.
//   - Mutex: blocking mutual exclusion with an uncontended fast path.
//   - Condvar and StrictCondvar: wait/notify coordination on a Mutex.
//   - RWLock: multiple readers or a single writer.
//   - Channel, UncheckedChannel and NewOneShot: single-value hand-off.
//   - Lazy: a lazily initialized value published by pointer swap.
//
// Guarded variants (SpinLockOf, MutexOf, RWLockOf) embed the protected value
// next to the lock word; the value is reachable only through a live guard,
// and releasing the guard is the only way to unlock.
//
// Go's sync/atomic operations are sequentially consistent, so every
// release/acquire pairing these algorithms need is provided by the atomic
// access itself; comments name the edge where it matters.
package atomics
